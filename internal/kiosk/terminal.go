package kiosk

import (
	"fmt"
	"io"

	"github.com/andresmejia3/biopass/internal/camera"
)

// TerminalRenderer prints a status line whenever the camera state, status
// text or enrollment count changes. It does not draw pixels.
type TerminalRenderer struct {
	W io.Writer

	camera   camera.State
	status   string
	enrolled int
	drawn    bool
}

func (r *TerminalRenderer) Render(v View) {
	if r.drawn && v.Camera == r.camera && v.Status == r.status && v.Enrolled == r.enrolled {
		return
	}
	r.camera, r.status, r.enrolled, r.drawn = v.Camera, v.Status, v.Enrolled, true

	res := "-"
	if v.HasFrame {
		res = fmt.Sprintf("%dx%d", v.Frame.Width, v.Frame.Height)
	}
	fmt.Fprintf(r.W, "[camera: %s | %s | enrolled: %d] %s\n", v.Camera, res, v.Enrolled, v.Status)
}
