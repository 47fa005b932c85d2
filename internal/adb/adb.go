// Package adb drives an Android device or emulator through the adb binary.
package adb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrShortScreencap  = errors.New("adb: screencap output shorter than header")
	ErrTruncatedPixels = errors.New("adb: screencap pixel data truncated")
)

// DefaultCommandTimeout bounds a single adb invocation.
const DefaultCommandTimeout = 5 * time.Second

// Orientation names accepted by the emulator console ("adb emu rotate").
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// runFunc executes a command and returns its stdout. Tests swap it out.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client is an adb session bound to one executable path and, optionally,
// one device serial. All methods are safe for concurrent use.
type Client struct {
	path    string
	serial  string
	timeout time.Duration
	log     *zap.Logger

	run runFunc
}

// Option configures a Client.
type Option func(*Client)

// WithSerial targets a specific device (-s <serial>).
func WithSerial(serial string) Option {
	return func(c *Client) { c.serial = serial }
}

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func withRunner(run runFunc) Option {
	return func(c *Client) { c.run = run }
}

// New returns a Client using the given adb executable path
// ("adb" resolves through $PATH).
func New(path string, opts ...Option) *Client {
	c := &Client{
		path:    path,
		timeout: DefaultCommandTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.run == nil {
		c.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		}
	}
	return c
}

// Run executes adb with the given arguments, prefixed with the device
// selector when a serial is set.
func (c *Client) Run(ctx context.Context, args ...string) ([]byte, error) {
	full := args
	if c.serial != "" {
		full = append([]string{"-s", c.serial}, args...)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debug("adb", zap.Strings("args", full))
	out, err := c.run(ctx, c.path, full...)
	if err != nil {
		return out, fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Shell runs a command through "adb shell".
func (c *Client) Shell(ctx context.Context, args ...string) ([]byte, error) {
	return c.Run(ctx, append([]string{"shell"}, args...)...)
}

// WaitForDevice blocks until adb reports the device as present.
func (c *Client) WaitForDevice(ctx context.Context) error {
	_, err := c.Run(ctx, "wait-for-device")
	return err
}

// Keyevent sends a single "input keyevent" with a KEYCODE_* name.
func (c *Client) Keyevent(ctx context.Context, code string) error {
	_, err := c.Shell(ctx, "input", "keyevent", code)
	return err
}

func (c *Client) KeyHome(ctx context.Context) error {
	return c.Keyevent(ctx, "KEYCODE_HOME")
}

func (c *Client) KeyPower(ctx context.Context) error {
	return c.Keyevent(ctx, "KEYCODE_POWER")
}

// Tap simulates a tap at (x, y).
func (c *Client) Tap(ctx context.Context, x, y int) error {
	_, err := c.Shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Swipe simulates a swipe from (x1, y1) to (x2, y2) over durMs milliseconds.
func (c *Client) Swipe(ctx context.Context, x1, y1, x2, y2, durMs int) error {
	_, err := c.Shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(durMs))
	return err
}

// Unlock dismisses the lockscreen with the swipe-up gesture.
func (c *Client) Unlock(ctx context.Context) error {
	return c.Swipe(ctx, 500, 1500, 500, 500, 300)
}

// StartApp launches the app's launcher activity through monkey.
func (c *Client) StartApp(ctx context.Context, pkg string) error {
	_, err := c.Shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// StartActivity starts an explicit component ("pkg/pkg.Activity").
func (c *Client) StartActivity(ctx context.Context, component string) error {
	_, err := c.Shell(ctx, "am", "start", "-n", component)
	return err
}

// KillApp force-stops the package.
func (c *Client) KillApp(ctx context.Context, pkg string) error {
	_, err := c.Shell(ctx, "am", "force-stop", pkg)
	return err
}

// EmuRotate rotates the emulator through the console ("adb emu rotate").
// Only works against emulator targets.
func (c *Client) EmuRotate(ctx context.Context, o Orientation) error {
	_, err := c.Run(ctx, "emu", "rotate", string(o))
	return err
}

// Screencap grabs the raw framebuffer via "exec-out screencap".
// The wire format is a 12-byte header (little-endian width, height,
// pixel format) followed by RGBA pixel data.
func (c *Client) Screencap(ctx context.Context) (*image.NRGBA, error) {
	raw, err := c.Run(ctx, "exec-out", "screencap")
	if err != nil {
		return nil, err
	}
	return parseRawScreencap(raw)
}

func parseRawScreencap(raw []byte) (*image.NRGBA, error) {
	if len(raw) < 12 {
		return nil, ErrShortScreencap
	}
	width := int(binary.LittleEndian.Uint32(raw[0:4]))
	height := int(binary.LittleEndian.Uint32(raw[4:8]))
	pix := raw[12:]
	if len(pix) < width*height*4 {
		return nil, ErrTruncatedPixels
	}
	return &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

// ScreenSize reports the device resolution from "wm size".
func (c *Client) ScreenSize(ctx context.Context) (w, h int, err error) {
	out, err := c.Shell(ctx, "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("adb: unexpected wm size output %q", out)
	}
	pair := strings.SplitN(fields[len(fields)-1], "x", 2)
	if len(pair) != 2 {
		return 0, 0, fmt.Errorf("adb: unexpected wm size output %q", out)
	}
	w, err = strconv.Atoi(pair[0])
	if err != nil {
		return 0, 0, fmt.Errorf("adb: parse width: %w", err)
	}
	h, err = strconv.Atoi(pair[1])
	if err != nil {
		return 0, 0, fmt.Errorf("adb: parse height: %w", err)
	}
	return w, h, nil
}
