package aqara

import (
	"context"
	"fmt"
	"strings"

	custerror "github.com/CE-Thesis-2023/aqara-ltd/internal/error"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"
	"github.com/CE-Thesis-2023/aqara-ltd/internal/shell"

	"go.uber.org/zap"
)

// HelperBinary describes an executable that must be present on the
// device with a known md5.
type HelperBinary struct {
	Name     string
	Checksum string
	// Source is the path of the binary relative to the provisioning URL
	// template.
	Source string
}

var (
	MotorHelper = HelperBinary{
		Name:     "mi_motor",
		Checksum: "b363f3ad671f7d854ef168e680eb8d3e",
		Source:   "bin/armv7l/mi_motor",
	}
	BrokerHelper = HelperBinary{
		Name:     "mosquitto",
		Checksum: "0422c48517dc464a2e986a1038dc448a",
		Source:   "bin/armv7l/mosquitto",
	}
)

func (c *Client) checksum(ctx context.Context, path string) string {
	out := c.shell.Run(ctx, "md5sum "+path)
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// EnsureBinary makes sure the helper is installed with the expected
// checksum, downloading it at most once per call.
func (c *Client) EnsureBinary(ctx context.Context, helper HelperBinary) error {
	if err := c.ensureBinary(ctx, helper, true); err != nil {
		return err
	}
	if helper.Name == MotorHelper.Name {
		c.motorReady.Store(true)
	}
	return nil
}

func (c *Client) ensureBinary(ctx context.Context, helper HelperBinary, download bool) error {
	path := c.binPath(helper.Name)
	sum := c.checksum(ctx, path)
	if sum == helper.Checksum {
		logger.SDebug("helper binary verified",
			zap.String("host", c.Host()),
			zap.String("binary", helper.Name))
		return nil
	}
	if !download {
		logger.SError("helper binary checksum mismatch after download",
			zap.String("host", c.Host()),
			zap.String("binary", helper.Name),
			zap.String("expected", helper.Checksum),
			zap.String("actual", sum))
		return custerror.Wrap(custerror.ErrProvisioningFailure,
			"%s: checksum %q, expected %q", helper.Name, sum, helper.Checksum)
	}

	source := fmt.Sprintf(c.options.urlTemplate, helper.Source)
	logger.SInfo("provisioning helper binary",
		zap.String("host", c.Host()),
		zap.String("binary", helper.Name),
		zap.String("source", source))

	c.shell.Run(ctx, "mkdir -p "+c.options.binDir)
	c.shell.RunWithTimeout(ctx,
		fmt.Sprintf(c.Dialect().FetchCommand, path, source),
		c.options.fetchTimeout)
	c.shell.Run(ctx, "chmod +x "+path)
	return c.ensureBinary(ctx, helper, false)
}

func (c *Client) bootScript() []string {
	d := c.Dialect()
	lines := []string{
		"#!/bin/sh",
		"fw_manager.sh -r",
		fmt.Sprintf(d.SetPropCommand, PropPtzMoving, "false"),
	}
	if d.Kind == shell.RootAdmin {
		lines = append(lines, "sleep 5")
	}
	lines = append(lines, fmt.Sprintf("[ -x %s ] && %s -d", c.binPath(BrokerHelper.Name), c.binPath(BrokerHelper.Name)))
	return lines
}

// EnsurePersistence installs the boot script unless one is already in
// place. An existing file is never rewritten.
func (c *Client) EnsurePersistence(ctx context.Context) error {
	path := c.options.scriptPath
	if c.FileExists(ctx, path) {
		return nil
	}

	dir := path[:strings.LastIndex(path, "/")+1]
	if len(dir) > 1 {
		c.shell.Run(ctx, "mkdir -p "+dir)
	}
	for i, line := range c.bootScript() {
		redirect := ">>"
		if i == 0 {
			redirect = ">"
		}
		c.shell.Run(ctx, fmt.Sprintf("echo '%s' %s %s", line, redirect, path))
	}
	c.shell.Run(ctx, "chmod +x "+path)
	if c.Dialect().ImmutableScripts {
		c.shell.Run(ctx, "chattr +i "+path)
	}

	if !c.FileExists(ctx, path) {
		return custerror.Wrap(custerror.ErrProvisioningFailure, "boot script %s was not written", path)
	}
	logger.SInfo("boot script installed",
		zap.String("host", c.Host()),
		zap.String("path", path))
	return nil
}

// EnsureBroker installs the local message broker and starts it when it is
// not already running.
func (c *Client) EnsureBroker(ctx context.Context) error {
	if err := c.EnsureBinary(ctx, BrokerHelper); err != nil {
		return err
	}
	if strings.Contains(c.shell.Run(ctx, "ps | grep -v grep | grep "+BrokerHelper.Name), c.binPath(BrokerHelper.Name)) {
		return nil
	}
	c.shell.Run(ctx, c.binPath(BrokerHelper.Name)+" -d")
	logger.SInfo("broker started", zap.String("host", c.Host()))
	return nil
}

// DetectMotor marks the motor helper as usable when it is already on the
// device, without verifying or downloading it.
func (c *Client) DetectMotor(ctx context.Context) bool {
	if c.FileExists(ctx, c.binPath(MotorHelper.Name)) {
		c.motorReady.Store(true)
	}
	return c.motorReady.Load()
}

func (c *Client) MotorReady() bool {
	return c.motorReady.Load()
}
