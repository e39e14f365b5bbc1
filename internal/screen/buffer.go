package screen

import (
	"errors"

	"github.com/genricoloni/screend/internal/domain"
	"go.uber.org/zap"
)

var errNoTarget = errors.New("no render target")

// bufferResult is the outcome of one buffer chain rebuild
type bufferResult struct {
	target domain.Drawable
	err    error
}

// installBufferStrategy rebuilds the buffer chain of the active drawable on
// the UI thread. Failures are logged; drawing degrades to no-ops until the
// next successful rebuild.
func (m *Manager) installBufferStrategy() bufferResult {
	var res bufferResult
	if err := m.dispatcher.Invoke(func() {
		res = m.rebuild()
	}); err != nil {
		res.err = err
	}

	if res.err != nil {
		name := ""
		if res.target != nil {
			name = res.target.Name()
		}
		m.logger.Error("Failed to create buffer strategy",
			zap.String("target", name),
			zap.Int("layers", m.layers),
			zap.Error(res.err))
	}
	return res
}

func (m *Manager) rebuild() bufferResult {
	target := m.activeDrawable()
	if target == nil {
		return bufferResult{err: errNoTarget}
	}

	if !target.IgnoreRepaint() {
		target.SetIgnoreRepaint(true)
	}
	if err := target.CreateBufferStrategy(m.layers); err != nil {
		return bufferResult{target: target, err: err}
	}

	m.setConfiguration(target.Configuration())
	m.logger.Debug("Buffer strategy installed",
		zap.String("target", target.Name()),
		zap.Int("layers", m.layers))
	return bufferResult{target: target}
}

// RebuildBuffers recreates the buffer chain of the active drawable, e.g.
// after the drawable was resized. It reports whether a chain is installed.
func (m *Manager) RebuildBuffers() bool {
	return m.installBufferStrategy().err == nil
}
