package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	SetLevel("warn")
	t.Cleanup(func() {
		SetFormat("text")
		SetLevel("info")
		SetOutput(os.Stdout)
	})

	Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	Warnf("range %s", "0.008-1.4")
	line := buf.Bytes()
	assert.True(t, gjson.ValidBytes(line))
	assert.Equal(t, "WARN", gjson.GetBytes(line, "level").String())
	assert.Equal(t, "range 0.008-1.4", gjson.GetBytes(line, "msg").String())
}

func TestInfoBlockSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("text")
	SetLevel("info")
	t.Cleanup(func() { SetOutput(os.Stdout) })

	InfoBlock("a\nb\n")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestUnknownFormatFallsBackToText(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("xml")
	SetLevel("debug")
	t.Cleanup(func() {
		SetLevel("info")
		SetOutput(os.Stdout)
	})
	Debugf("x")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
