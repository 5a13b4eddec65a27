package cli

import (
	"github.com/spf13/cobra"

	"github.com/taoyao-code/lcd-gateway/internal/protocol/registry"
)

// protocolRow 协议列表行
type protocolRow struct {
	ID           string `json:"id" yaml:"id"`
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
	MaxPacket    int    `json:"max_packet_size" yaml:"max_packet_size"`
	MaxFrameRate int    `json:"max_frame_rate" yaml:"max_frame_rate"`
	MaxFrameSize int    `json:"max_frame_size" yaml:"max_frame_size"`
	Brightness   bool   `json:"brightness" yaml:"brightness"`
	Orientation  bool   `json:"orientation" yaml:"orientation"`
	Default      bool   `json:"default" yaml:"default"`
}

func newProtocolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "protocols",
		Aliases: []string{"protocol", "ls"},
		Short:   "List built-in protocols and their capabilities",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids := opts.registry.Protocols()
			rows := make([]protocolRow, 0, len(ids))
			for _, id := range ids {
				c, _ := opts.registry.Capability(id)
				rows = append(rows, protocolRow{
					ID:           id,
					Width:        c.Width,
					Height:       c.Height,
					MaxPacket:    c.MaxPacketSize,
					MaxFrameRate: c.MaxFrameRate,
					MaxFrameSize: c.MaxFrameSize,
					Brightness:   c.SupportsBrightness,
					Orientation:  c.SupportsOrientation,
					Default:      id == registry.DefaultProtocol,
				})
			}
			return opts.formatter.Write(cmd.OutOrStdout(), rows)
		},
	}
}
