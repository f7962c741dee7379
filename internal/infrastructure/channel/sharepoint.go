package channel

import (
	"context"
	"log/slog"
)

// SharePointChannel is a placeholder for remote document library sync. It
// registers the channel name so statistics and configuration stay stable,
// but performs no polling yet.
// TODO: implement library delta sync once the site credentials flow is decided.
type SharePointChannel struct {
	logger *slog.Logger
}

func NewSharePointChannel(logger *slog.Logger) *SharePointChannel {
	return &SharePointChannel{logger: logger}
}

func (s *SharePointChannel) Name() string { return ChannelSharePoint }

func (s *SharePointChannel) Run(ctx context.Context) error {
	s.logger.Info("sharepoint_channel_idle")
	<-ctx.Done()
	return nil
}
