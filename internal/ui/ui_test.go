package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", FormatBytes(0))
	assert.Equal(t, "0 B", FormatBytes(-5))
	assert.Equal(t, "1.5 kB", FormatBytes(1500))
	assert.Equal(t, "52 MB", FormatBytes(52*1000*1000))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
	assert.Equal(t, "1.5h", FormatDuration(90*time.Minute))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))
	assert.Contains(t, FormatTime(time.Now().Add(-3*time.Hour)), "hours ago")
}

func TestTableRender(t *testing.T) {
	tbl := NewTable("NUM", "PATH", "SIZE").AlignRight(2)
	tbl.AddRow("ABP-123", "/library/ABP-123.mp4", "1.2 GB")
	tbl.AddRow("SSIS-001")
	assert.Equal(t, 2, tbl.Len())

	var buf bytes.Buffer
	tbl.Render(&buf)
	out := buf.String()

	assert.Contains(t, out, "NUM")
	assert.Contains(t, out, "ABP-123")
	assert.Contains(t, out, "SSIS-001")
	assert.Contains(t, out, "╭")
}

func TestProgressBarPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressBar(&buf, "organize")
	for _, f := range []float64{0, 0.05, 0.12, 0.5, 0.99, 1, 1} {
		p.Update(f)
	}
	p.Finish()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"organize: 0%",
		"organize: 12%",
		"organize: 50%",
		"organize: 99%",
		"organize: 100%",
	}, lines)
}

func TestStatusMarkersPlainWithoutTerminal(t *testing.T) {
	DisableColors()
	assert.Equal(t, "failed", Status("failed"))

	var buf bytes.Buffer
	SuccessMsg(&buf, "moved %d files", 2)
	assert.Equal(t, "✓ moved 2 files\n", buf.String())
}
