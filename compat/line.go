package compat

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/lixenwraith/disklog"
)

// formatLine renders one CSV row "time,level,tag,message" terminated by a newline
func formatLine(ts time.Time, level int64, tag, msg string) string {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	// Write only fails on the underlying writer, a bytes.Buffer never does
	_ = w.Write([]string{ts.Format(time.RFC3339Nano), disklog.LevelName(level), tag, msg})
	w.Flush()
	return b.String()
}
