package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"
)

const scriptName = "holistic_service.py"

// HolisticDetector implements Detector using a Python MediaPipe holistic
// landmarker subprocess. Frames go in as a timestamp, a length prefix and
// JPEG bytes; each frame yields one JSON line.
type HolisticDetector struct {
	config Config
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	ready  bool
	lastTS time.Duration
	seen   bool
}

// NewHolisticDetector creates a new holistic detector. The Python process is
// not started until Start is called.
func NewHolisticDetector(config Config) (*HolisticDetector, error) {
	if config.ScriptPath == "" {
		config.ScriptPath = findServiceScript()
	}
	if config.ScriptPath == "" {
		return nil, fmt.Errorf("%s not found", scriptName)
	}
	if config.PythonPath == "" {
		config.PythonPath = findVenvPython()
	}
	if config.PythonPath == "" {
		config.PythonPath = "python3"
	}
	if config.StartTimeout <= 0 {
		config.StartTimeout = DefaultConfig().StartTimeout
	}

	return &HolisticDetector{config: config}, nil
}

// Start launches the service and blocks until the model reports it is
// loaded, the context is cancelled or the start timeout elapses.
func (d *HolisticDetector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ready {
		return nil
	}

	d.cmd = exec.Command(d.config.PythonPath, d.config.ScriptPath,
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start holistic service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)

	reader := d.stdout
	handshake := make(chan error, 1)
	go func() {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			handshake <- fmt.Errorf("read handshake: %w", err)
			return
		}
		var msg struct {
			Ready bool   `json:"ready"`
			Error string `json:"error"`
		}
		if err := jsoniter.Unmarshal(line, &msg); err != nil {
			handshake <- fmt.Errorf("parse handshake: %w", err)
			return
		}
		if !msg.Ready {
			handshake <- fmt.Errorf("model load failed: %s", msg.Error)
			return
		}
		handshake <- nil
	}()

	timer := time.NewTimer(d.config.StartTimeout)
	defer timer.Stop()

	select {
	case err = <-handshake:
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
		err = fmt.Errorf("model load timed out after %s", d.config.StartTimeout)
	}
	if err != nil {
		d.kill()
		return err
	}

	d.ready = true
	return nil
}

// Detect analyzes a frame and returns the detected landmark sets.
func (d *HolisticDetector) Detect(frame *gocv.Mat, timestamp time.Duration) (*LandmarkFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return nil, ErrNotReady
	}
	if d.seen && timestamp <= d.lastTS {
		return nil, ErrStaleTimestamp
	}
	d.lastTS = timestamp
	d.seen = true

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// timestamp (8 bytes) + length (4 bytes), both big-endian
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], uint64(timestamp.Milliseconds()))
	binary.BigEndian.PutUint32(header[8:], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	result, err := parseResponse(line)
	if err != nil {
		return nil, err
	}
	result.Timestamp = timestamp
	return result, nil
}

// Close shuts down the Python process.
func (d *HolisticDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cmd == nil {
		return nil
	}
	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.ready = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *HolisticDetector) kill() {
	if d.stdin != nil {
		d.stdin.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
}

// response is the JSON structure written by the Python service per frame.
type response struct {
	Pose      []Landmark `json:"pose"`
	LeftHand  []Landmark `json:"left_hand"`
	RightHand []Landmark `json:"right_hand"`
	Face      []Landmark `json:"face"`
	Error     string     `json:"error"`
}

func parseResponse(line []byte) (*LandmarkFrame, error) {
	var resp response
	if err := jsoniter.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("holistic service: %s", resp.Error)
	}
	return &LandmarkFrame{
		Pose:      resp.Pose,
		LeftHand:  resp.LeftHand,
		RightHand: resp.RightHand,
		Face:      resp.Face,
	}, nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".arsticker", "scripts", scriptName),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	return firstExisting([]string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".arsticker/venv/bin/python"),
	})
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
