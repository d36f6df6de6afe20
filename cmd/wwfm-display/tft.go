package main

import (
	"fmt"
	"image"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// TFT drives an ILI9341 panel over SPI.
type TFT struct {
	spiDev    spi.Conn
	dc        gpio.PinOut
	backlight gpio.PinOut
	width     int
	height    int
}

// TFTConfig names the SPI device and GPIO pins the panel is wired to.
type TFTConfig struct {
	SPIDevice    string // e.g. /dev/spidev0.0
	DCPin        string // data/command select
	BacklightPin string
}

const (
	// ILI9341 commands
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdDISPON  = 0x29
	cmdCASet   = 0x2A
	cmdPASet   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdPIXFMT  = 0x3A

	// madctlLandscape is MY|MX|MV|BGR: 320x240 with the connector on the left.
	madctlLandscape = 0xE8

	// Landscape panel size
	displayWidth  = 320
	displayHeight = 240

	// The SPI driver's maximum transfer size.
	spiChunkSize = 4096
)

// NewTFT opens the panel and runs its init sequence.
func NewTFT(cfg TFTConfig) (*TFT, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph.io init: %w", err)
	}

	port, err := spireg.Open(cfg.SPIDevice)
	if err != nil {
		return nil, fmt.Errorf("open SPI %s: %w", cfg.SPIDevice, err)
	}

	conn, err := port.Connect(16*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("connect SPI: %w", err)
	}

	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		return nil, fmt.Errorf("failed to open %s (DC pin)", cfg.DCPin)
	}
	backlight := gpioreg.ByName(cfg.BacklightPin)
	if backlight == nil {
		return nil, fmt.Errorf("failed to open %s (backlight pin)", cfg.BacklightPin)
	}

	t := &TFT{
		spiDev:    conn,
		dc:        dc,
		backlight: backlight,
		width:     displayWidth,
		height:    displayHeight,
	}
	if err := t.init(); err != nil {
		return nil, fmt.Errorf("init display: %w", err)
	}

	slog.Info("TFT display initialized", "spi", cfg.SPIDevice, "width", displayWidth, "height", displayHeight)
	return t, nil
}

// init runs the ILI9341 power-up sequence and selects landscape RGB565.
func (t *TFT) init() error {
	if err := t.backlight.Out(gpio.High); err != nil {
		return fmt.Errorf("set backlight: %w", err)
	}

	seq := []struct {
		cmd  byte
		data []byte
	}{
		{cmdSWRESET, nil},                    // software reset
		{cmdSLPOUT, nil},                     // sleep out
		{0xC0, []byte{0x23}},                 // power control 1
		{0xC1, []byte{0x10}},                 // power control 2
		{0xC5, []byte{0x3E, 0x28}},           // VCM control 1
		{0xC7, []byte{0x86}},                 // VCM control 2
		{cmdMADCTL, []byte{madctlLandscape}}, // memory access: landscape
		{cmdPIXFMT, []byte{0x55}},            // 16-bit RGB565
		{0xB1, []byte{0x00, 0x18}},           // frame rate
		{0xB6, []byte{0x08, 0x82, 0x27}},     // display function control
		{0xF2, []byte{0x00}},                 // 3-gamma off
		{0x26, []byte{0x01}},                 // gamma curve 1
		{cmdDISPON, nil},                     // display on
	}
	for _, s := range seq {
		if err := t.writeCommand(s.cmd, s.data...); err != nil {
			return fmt.Errorf("command 0x%02X: %w", s.cmd, err)
		}
	}

	slog.Debug("ILI9341 initialization complete")
	return nil
}

// writeCommand writes a command and optional data bytes to the display.
func (t *TFT) writeCommand(cmd byte, data ...byte) error {
	// DC low = command
	if err := t.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := t.spiDev.Tx([]byte{cmd}, nil); err != nil {
		return err
	}

	if len(data) > 0 {
		if err := t.dc.Out(gpio.High); err != nil {
			return err
		}
		if err := t.spiDev.Tx(data, nil); err != nil {
			return err
		}
	}
	return nil
}

// setWindow sets the drawing window on the display.
func (t *TFT) setWindow(x0, y0, x1, y1 int) error {
	if err := t.writeCommand(cmdCASet,
		byte(x0>>8), byte(x0),
		byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	return t.writeCommand(cmdPASet,
		byte(y0>>8), byte(y0),
		byte(y1>>8), byte(y1))
}

// Show writes img to the panel. Pixels outside the panel are clipped and
// missing ones are sent black.
func (t *TFT) Show(img *image.RGBA) error {
	if err := t.setWindow(0, 0, t.width-1, t.height-1); err != nil {
		return err
	}
	if err := t.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := t.spiDev.Tx([]byte{cmdRAMWR}, nil); err != nil {
		return err
	}
	if err := t.dc.Out(gpio.High); err != nil {
		return err
	}

	buf := make([]byte, 0, spiChunkSize)
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			hi, lo := rgb565(img, x, y)
			buf = append(buf, hi, lo)
			if len(buf) == spiChunkSize {
				if err := t.spiDev.Tx(buf, nil); err != nil {
					return err
				}
				buf = buf[:0]
			}
		}
	}
	if len(buf) > 0 {
		return t.spiDev.Tx(buf, nil)
	}
	return nil
}

// rgb565 returns the big-endian RGB565 encoding of the pixel at (x, y).
func rgb565(img *image.RGBA, x, y int) (byte, byte) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return 0, 0
	}
	c := img.RGBAAt(x, y)
	v := uint16(c.R&0xF8)<<8 | uint16(c.G&0xFC)<<3 | uint16(c.B>>3)
	return byte(v >> 8), byte(v)
}

// Off turns the backlight off.
func (t *TFT) Off() {
	if err := t.backlight.Out(gpio.Low); err != nil {
		slog.Debug("TFT backlight off failed", "err", err)
	}
}
