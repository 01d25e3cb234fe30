package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRemindCmd runs the availability reminder once and exits.
func NewRemindCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Notify members about quizzes they can take again",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			s, err := buildStack(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			sent, err := s.reminders.Run(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("reminders sent", zap.Int("count", sent))
			return nil
		},
	}
}
