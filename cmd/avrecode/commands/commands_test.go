package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/avrecode/channellayout"
	"github.com/xaionaro-go/avrecode/types"
)

func execute(t *testing.T, args ...string) string {
	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetErr(&out)
	Root.SetArgs(args)
	require.NoError(t, Root.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestLayoutCommands(t *testing.T) {
	out := execute(t, "layout", "describe", "5.1")
	require.Contains(t, out, "channels: 6\n")
	require.Contains(t, out, "channel list: FL FR FC LFE BL BR\n")

	out = execute(t, "layout", "best", "--max", "2", "mono", "stereo", "5.1")
	require.Equal(t, "stereo\n", out)

	out = execute(t, "layout", "list")
	require.Contains(t, out, "stereo")
	require.Contains(t, out, "22.2")
}

func TestLoadConfigWithFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avrecode.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encoder:\n  codec: pcm_s16le\n  sample_rate: 48000\n"), 0o644))

	flags := Transcode.Flags()
	require.NoError(t, flags.Parse([]string{
		"--config", path,
		"--sample-rate", "22050",
		"--channel-layout", "mono",
		"--sample-format", "s16",
	}))

	cfg, err := loadConfig(flags)
	require.NoError(t, err)
	require.Equal(t, "pcm_s16le", cfg.Encoder.Codec)
	require.Equal(t, 22050, cfg.Encoder.SampleRate)
	require.True(t, cfg.Encoder.ChannelLayout.Equal(channellayout.Mono))
	require.Equal(t, types.SampleFormatS16, *cfg.Encoder.SampleFormat)
	require.Nil(t, cfg.Input.StreamIndex)

	require.NoError(t, flags.Parse([]string{"--filter", "reverb"}))
	_, err = loadConfig(flags)
	require.Error(t, err)
}
