package events

import (
	"github.com/CE-Thesis-2023/aqara-ltd/internal/aqara"
	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
)

type PtzCtrlRequest struct {
	Direction string   `json:"direction"`
	AngleX    *float64 `json:"angle_x,omitempty"`
	AngleY    *float64 `json:"angle_y,omitempty"`
	SpanX     *int     `json:"span_x,omitempty"`
	SpanY     *int     `json:"span_y,omitempty"`
}

func (r *PtzCtrlRequest) Validate() (aqara.Direction, error) {
	dir, err := aqara.ParseDirection(r.Direction)
	if err != nil {
		return "", err
	}
	if r.AngleX != nil && (*r.AngleX < aqara.MinAngleX || *r.AngleX > aqara.MaxAngleX) {
		return "", custerror.FormatInvalidArgument("angle_x %v out of range [%v, %v]",
			*r.AngleX, aqara.MinAngleX, aqara.MaxAngleX)
	}
	if r.AngleY != nil && (*r.AngleY < aqara.MinAngleY || *r.AngleY > aqara.MaxAngleY) {
		return "", custerror.FormatInvalidArgument("angle_y %v out of range [%v, %v]",
			*r.AngleY, aqara.MinAngleY, aqara.MaxAngleY)
	}
	if r.SpanX != nil && *r.SpanX < 0 {
		return "", custerror.FormatInvalidArgument("span_x must not be negative")
	}
	if r.SpanY != nil && *r.SpanY < 0 {
		return "", custerror.FormatInvalidArgument("span_y must not be negative")
	}
	return dir, nil
}

// Spans returns the spans for a relative move, zero when unset.
func (r *PtzCtrlRequest) Spans() (int, int) {
	var x, y int
	if r.SpanX != nil {
		x = *r.SpanX
	}
	if r.SpanY != nil {
		y = *r.SpanY
	}
	return x, y
}
