// Command pokerpal tracks live poker sessions from chat.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/itsanji/pocker-winner-bot/config"
)

var (
	envFile string
	cfg     *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pokerpal",
		Short: "Live poker session tracker",
		Long: `pokerpal records buy-ins, exits, rebuys and the winner of a home game
and keeps everyone's profit and loss. Commands are typed in chat as "!po ...".

Sessions are stored in memory, SQLite or Redis and mirrored to a Google
spreadsheet when GOOGLE_SHEETS_ID is set.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(envFile)
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file read before the environment")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConsoleCmd())
	rootCmd.AddCommand(newReplayCmd())

	return rootCmd
}

// jsonLogger is the logger of long-running processes.
func jsonLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
