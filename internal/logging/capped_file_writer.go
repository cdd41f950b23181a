package logging

import (
	"os"
	"sync"
)

// cappedFileWriter truncates the log file and starts over once it would
// exceed maxBytes. Good enough for a single-process engine log; rotation
// belongs to the deployment, not here.
type cappedFileWriter struct {
	path     string
	maxBytes int64

	mu   sync.Mutex
	file *os.File
	size int64
}

func newCappedFileWriter(path string, maxMB int) (*cappedFileWriter, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &cappedFileWriter{
		path:     path,
		maxBytes: int64(maxMB) * 1024 * 1024,
		file:     f,
		size:     info.Size(),
	}, nil
}

func (w *cappedFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.size+int64(len(p)) > w.maxBytes {
		if err := w.file.Truncate(0); err != nil {
			return 0, err
		}
		if _, err := w.file.Seek(0, 0); err != nil {
			return 0, err
		}
		w.size = 0
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *cappedFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
