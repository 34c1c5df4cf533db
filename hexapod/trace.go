package hexapod

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVTrace writes one CSV row per frame: time, base x/y/z, yaw, the 18
// joint angles, then the six foot positions.
type CSVTrace struct {
	w      *csv.Writer
	header bool
	every  int
	n      int
}

// NewCSVTrace creates a trace writing every nth frame (n <= 1 writes all).
func NewCSVTrace(w io.Writer, every int) *CSVTrace {
	return &CSVTrace{w: csv.NewWriter(w), every: max(every, 1)}
}

func (t *CSVTrace) Frame(f Frame) error {
	t.n++
	if (t.n-1)%t.every != 0 {
		return nil
	}
	if !t.header {
		if err := t.w.Write(traceHeader()); err != nil {
			return err
		}
		t.header = true
	}
	row := make([]string, 0, 5+NumJoints+NumLegs*3)
	row = append(row, ftoa(f.Time), ftoa(f.BasePos[0]), ftoa(f.BasePos[1]), ftoa(f.BasePos[2]), ftoa(f.Yaw))
	for _, a := range f.JointAngles {
		row = append(row, ftoa(a))
	}
	for _, p := range f.Feet {
		row = append(row, ftoa(p[0]), ftoa(p[1]), ftoa(p[2]))
	}
	return t.w.Write(row)
}

// Flush writes buffered rows to the underlying writer.
func (t *CSVTrace) Flush() error {
	t.w.Flush()
	return t.w.Error()
}

func traceHeader() []string {
	h := []string{"t", "x", "y", "z", "yaw"}
	joints := []string{"coxa", "femur", "tibia"}
	for leg := 0; leg < NumLegs; leg++ {
		for _, j := range joints {
			h = append(h, fmt.Sprintf("leg%d_%s", leg, j))
		}
	}
	for leg := 0; leg < NumLegs; leg++ {
		h = append(h, fmt.Sprintf("foot%d_x", leg), fmt.Sprintf("foot%d_y", leg), fmt.Sprintf("foot%d_z", leg))
	}
	return h
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
