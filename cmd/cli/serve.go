package cli

import (
	"github.com/spf13/cobra"

	"github.com/finledger/bankfeed/pkg/server"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync trigger over HTTP",
		Long: `Expose POST /sync (single-flight), POST /link, GET /healthz and
GET /metrics. Intended for a scheduler or frontend to trigger runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initAppState()
			if err != nil {
				return err
			}
			defer app.close()

			if addr == "" {
				addr = app.cfg.Server.Addr
			}

			srv := server.New(app.syncer(), app.linker())
			return srv.ListenAndServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr from config)")
	return cmd
}
