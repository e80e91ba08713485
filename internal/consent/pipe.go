package consent

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/Wikid82/warden/internal/models"
)

// maxReasonLen bounds the justification read from the helper so a misbehaving
// child cannot make the broker buffer arbitrary data.
const maxReasonLen = 4096

// PipeChannel runs the consent helper as a child process holding the write
// end of an anonymous pipe. The parent keeps the read end and waits for the
// single decision byte. The pipe is single-use and unidirectional.
type PipeChannel struct {
	// HelperPath is the consent UI executable.
	HelperPath string

	kind models.ElevationKind
	cmd  *exec.Cmd
	r    *os.File
}

// Open creates the pipe, spawns the helper with the write end inherited as
// fd 3, and hands it the prompt via the environment.
func (c *PipeChannel) Open(prompt Prompt) error {
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create consent pipe: %w", err)
	}

	promptJSON, err := json.Marshal(prompt)
	if err != nil {
		r.Close()
		w.Close()
		return fmt.Errorf("encode consent prompt: %w", err)
	}

	cmd := exec.Command(c.HelperPath)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Env = append(os.Environ(), "WARDEN_CONSENT_PROMPT="+string(promptJSON))

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return fmt.Errorf("spawn consent helper: %w", err)
	}

	// The child owns the write end now. Closing our copy is what turns a
	// crashed helper into a readable EOF.
	w.Close()

	c.kind = prompt.Kind
	c.cmd = cmd
	c.r = r
	return nil
}

// ReadDecision reads exactly one decision byte, plus the length-prefixed
// justification for approved ReasonApproval prompts. Closure without data
// surfaces as ErrNoDecision.
func (c *PipeChannel) ReadDecision(ctx context.Context) (Reply, error) {
	type outcome struct {
		reply Reply
		err   error
	}
	ch := make(chan outcome, 1)

	go func() {
		var buf [1]byte
		if _, err := io.ReadFull(c.r, buf[:]); err != nil {
			ch <- outcome{err: ErrNoDecision}
			return
		}

		reply := Reply{Byte: buf[0]}
		if buf[0] == DecisionByteApprove && c.kind == models.ElevationReasonApproval {
			var lenBuf [2]byte
			if _, err := io.ReadFull(c.r, lenBuf[:]); err == nil {
				n := binary.BigEndian.Uint16(lenBuf[:])
				if n > 0 && n <= maxReasonLen {
					reason := make([]byte, n)
					if _, err := io.ReadFull(c.r, reason); err == nil {
						reply.Reason = string(reason)
					}
				}
			}
		}
		ch <- outcome{reply: reply}
	}()

	select {
	case out := <-ch:
		return out.reply, out.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Close tears down the pipe and the helper process.
func (c *PipeChannel) Close() error {
	if c.r != nil {
		c.r.Close()
		c.r = nil
	}
	if c.cmd != nil && c.cmd.Process != nil {
		// Releasing the UI is unconditional; the helper may already be gone.
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
		c.cmd = nil
	}
	return nil
}
