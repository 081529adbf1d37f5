package aqara

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/bytedance/sonic"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Left   Direction = "left"
	Right  Direction = "right"
	Preset Direction = "preset"
)

func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Up, Down, Left, Right, Preset:
		return d, nil
	}
	return "", custerror.FormatInvalidArgument("unknown direction %q", s)
}

const (
	StepDegrees = 3.0

	MinAngleX = -170.0
	MaxAngleX = 170.0
	MinAngleY = -15.0
	MaxAngleY = 50.0
)

type MotorState struct {
	AngleX float64 `mapstructure:"angle_x" json:"angle_x"`
	AngleY float64 `mapstructure:"angle_y" json:"angle_y"`
	SpanX  int     `mapstructure:"span_x" json:"span_x"`
	SpanY  int     `mapstructure:"span_y" json:"span_y"`
}

var motorFields = []string{"angle_x", "angle_y", "span_x", "span_y"}

// ParseMotorState decodes the JSON printed by the motor helper's query.
// The helper prints numbers, sometimes quoted, so decoding is weakly typed.
func ParseMotorState(out string) (*MotorState, error) {
	body, ok := extractObject(out)
	if !ok {
		return nil, custerror.FormatInvalidArgument("motor output has no JSON object: %q", out)
	}
	var raw map[string]interface{}
	if err := sonic.UnmarshalString(body, &raw); err != nil {
		return nil, custerror.FormatInvalidArgument("motor output: %s", err)
	}
	for _, f := range motorFields {
		if _, ok := raw[f]; !ok {
			return nil, custerror.FormatInvalidArgument("motor output missing %s", f)
		}
	}
	var state MotorState
	if err := mapstructure.WeakDecode(raw, &state); err != nil {
		return nil, custerror.FormatInvalidArgument("motor output: %s", err)
	}
	return &state, nil
}

// Step applies one fixed step in the given direction. Spans are left as
// they are.
func (s MotorState) Step(d Direction) MotorState {
	switch d {
	case Up:
		s.AngleY += StepDegrees
	case Down:
		s.AngleY -= StepDegrees
	case Left:
		s.AngleX += StepDegrees
	case Right:
		s.AngleX -= StepDegrees
	}
	return s.clamp()
}

func (s MotorState) clamp() MotorState {
	s.AngleX = clampFloat(s.AngleX, MinAngleX, MaxAngleX)
	s.AngleY = clampFloat(s.AngleY, MinAngleY, MaxAngleY)
	if s.SpanX < 0 {
		s.SpanX = 0
	}
	if s.SpanY < 0 {
		s.SpanY = 0
	}
	return s
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s MotorState) command(helper string) string {
	return fmt.Sprintf("%s -x %s -y %s -a %d -b %d",
		helper,
		strconv.FormatFloat(s.AngleX, 'f', -1, 64),
		strconv.FormatFloat(s.AngleY, 'f', -1, 64),
		s.SpanX, s.SpanY)
}

// MotorState queries the current position from the motor helper.
func (c *Client) MotorState(ctx context.Context) (*MotorState, error) {
	out := c.shell.Run(ctx, c.binPath(MotorHelper.Name)+" -g")
	return ParseMotorState(out)
}

// Move steps the camera once in a direction. Failures are logged only.
func (c *Client) Move(ctx context.Context, d Direction, spanX int, spanY int) {
	if !c.MotorReady() {
		logger.SError("ptz move skipped, motor helper not installed",
			zap.String("host", c.Host()))
		return
	}
	defer c.clearMoving(ctx)

	current, err := c.MotorState(ctx)
	if err != nil {
		logger.SError("ptz move: motor state unreadable",
			zap.String("host", c.Host()),
			zap.Error(err))
		return
	}
	current.SpanX = spanX
	current.SpanY = spanY
	c.drive(ctx, current.Step(d))
}

// MoveToPreset drives to an absolute position. Nil arguments keep the
// current value; all nil is a no-op.
func (c *Client) MoveToPreset(ctx context.Context, angleX *float64, angleY *float64, spanX *int, spanY *int) {
	if !c.MotorReady() {
		logger.SError("ptz preset skipped, motor helper not installed",
			zap.String("host", c.Host()))
		return
	}
	if angleX == nil && angleY == nil && spanX == nil && spanY == nil {
		return
	}
	defer c.clearMoving(ctx)

	current, err := c.MotorState(ctx)
	if err != nil {
		logger.SError("ptz preset: motor state unreadable",
			zap.String("host", c.Host()),
			zap.Error(err))
		return
	}
	target := *current
	if angleX != nil {
		target.AngleX = *angleX
	}
	if angleY != nil {
		target.AngleY = *angleY
	}
	if spanX != nil {
		target.SpanX = *spanX
	}
	if spanY != nil {
		target.SpanY = *spanY
	}
	c.drive(ctx, target.clamp())
}

func (c *Client) drive(ctx context.Context, target MotorState) {
	c.shell.SetProperty(ctx, PropPtzMoving, "true")
	c.shell.Run(ctx, target.command(c.binPath(MotorHelper.Name)))
	logger.SDebug("ptz moved",
		zap.String("host", c.Host()),
		zap.Float64("angleX", target.AngleX),
		zap.Float64("angleY", target.AngleY))
}

func (c *Client) clearMoving(ctx context.Context) {
	c.shell.SetProperty(ctx, PropPtzMoving, "false")
}
