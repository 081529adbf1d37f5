package custrtsp

import (
	"time"

	rtsp "github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
)

func New() *rtsp.Client {
	return &rtsp.Client{
		ReadTimeout: time.Second * 3,
	}
}

type ProbeResult struct {
	Url    string `json:"url"`
	Medias int    `json:"medias"`
}

// Probe sends DESCRIBE to the given RTSP URL and reports how many media
// the server announces.
func Probe(rawUrl string) (*ProbeResult, error) {
	u, err := base.ParseURL(rawUrl)
	if err != nil {
		return nil, custerror.FormatInvalidArgument("invalid rtsp url: %s", err)
	}

	c := New()
	if err := c.Start(u.Scheme, u.Host); err != nil {
		return nil, custerror.Wrap(custerror.ErrStreamUnavailable, "rtsp connect: %s", err)
	}
	defer c.Close()

	desc, _, err := c.Describe(u)
	if err != nil {
		return nil, custerror.Wrap(custerror.ErrStreamUnavailable, "rtsp describe: %s", err)
	}
	return &ProbeResult{
		Url:    rawUrl,
		Medias: len(desc.Medias),
	}, nil
}
