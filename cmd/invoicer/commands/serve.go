package commands

import (
	"net/http"
	"workorder-invoicer/internal/components/chrono"
	"workorder-invoicer/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var servePort *int

func init() {
	servePort = serveCmd.Flags().IntP("port", "p", 0, "Port to listen on, defaults to server.port of the config.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the operator API and runs the scheduled generations.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx, "invoicer")
		if err != nil {
			serviceutil.Fatal("init", err)
		}
		defer a.Close()

		cron := chrono.NewStandardCron(a.clock, a.tel)
		defer cron.Stop()
		err = a.service.Schedule(cron, a.cfg.Schedule.Invoice, a.cfg.Schedule.ClosedJobs)
		if err != nil {
			a.Close()
			serviceutil.Fatal("schedule", err)
		}

		mux := http.NewServeMux()
		a.service.RegisterRoutes(mux)

		port := a.cfg.Server.Port
		if *servePort > 0 {
			port = *servePort
		}
		err = serviceutil.StartHttpServer(ctx, port, mux)
		if err != nil {
			cron.Stop()
			a.Close()
			serviceutil.Fatal("http server", err)
		}
	},
}
