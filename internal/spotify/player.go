package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
)

// PlayOptions selects what to play and where. Empty fields resume the
// current context on the active device.
type PlayOptions struct {
	DeviceID string
	URIs     []string
}

func deviceOptions(deviceID string) *spotify.PlayOptions {
	if deviceID == "" {
		return nil
	}
	id := spotify.ID(deviceID)
	return &spotify.PlayOptions{DeviceID: &id}
}

// Play starts or resumes playback.
func (c *Client) Play(ctx context.Context, opts PlayOptions) error {
	play := deviceOptions(opts.DeviceID)
	if len(opts.URIs) > 0 {
		if play == nil {
			play = &spotify.PlayOptions{}
		}
		play.URIs = make([]spotify.URI, len(opts.URIs))
		for i, u := range opts.URIs {
			play.URIs[i] = spotify.URI(u)
		}
	}

	return c.call(ctx, "play", func(ctx context.Context) error {
		return c.api.PlayOpt(ctx, play)
	})
}

// Pause pauses playback on deviceID, or the active device when empty.
func (c *Client) Pause(ctx context.Context, deviceID string) error {
	return c.call(ctx, "pause", func(ctx context.Context) error {
		return c.api.PauseOpt(ctx, deviceOptions(deviceID))
	})
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, deviceID string) error {
	return c.call(ctx, "skip next", func(ctx context.Context) error {
		return c.api.NextOpt(ctx, deviceOptions(deviceID))
	})
}

// SkipNext is Next.
func (c *Client) SkipNext(ctx context.Context, deviceID string) error {
	return c.Next(ctx, deviceID)
}

// Previous skips to the previous track.
func (c *Client) Previous(ctx context.Context, deviceID string) error {
	return c.call(ctx, "skip previous", func(ctx context.Context) error {
		return c.api.PreviousOpt(ctx, deviceOptions(deviceID))
	})
}

// Queue appends a track to the playback queue. uri is a track URI or a
// bare track ID.
func (c *Client) Queue(ctx context.Context, uri, deviceID string) error {
	id, err := trackID(uri)
	if err != nil {
		return err
	}
	return c.call(ctx, "queue", func(ctx context.Context) error {
		return c.api.QueueSongOpt(ctx, id, deviceOptions(deviceID))
	})
}

// Devices lists the user's Connect devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var devices []spotify.PlayerDevice
	err := c.call(ctx, "list devices", func(ctx context.Context) (err error) {
		devices, err = c.api.PlayerDevices(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]Device, len(devices))
	for i, d := range devices {
		volume := int(d.Volume)
		out[i] = Device{
			ID:            string(d.ID),
			Name:          d.Name,
			Type:          d.Type,
			IsActive:      d.Active,
			VolumePercent: &volume,
		}
	}
	return out, nil
}

// CurrentlyPlaying returns the playback state, or nil when nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error) {
	var cp *spotify.CurrentlyPlaying
	err := c.call(ctx, "currently playing", func(ctx context.Context) (err error) {
		cp, err = c.api.PlayerCurrentlyPlaying(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	// A 204 leaves the state zeroed.
	if cp.Item == nil && cp.Timestamp == 0 && !cp.Playing {
		return nil, nil
	}

	out := &CurrentlyPlaying{IsPlaying: cp.Playing, ProgressMS: int(cp.Progress)}
	if cp.Item != nil {
		item := convertTrack(*cp.Item)
		out.Item = &item
	}
	return out, nil
}
