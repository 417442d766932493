package eventlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"tunwatch/internal/models"
)

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var (
	networkHeader   = []string{"timestamp", "protocol", "src_ip", "dst_ip", "ip_proto", "info", "length_bytes"}
	transportHeader = []string{"timestamp", "protocol", "src_ip", "src_port", "dst_ip", "dst_port", "length_bytes"}
	appHeader       = []string{"timestamp", "protocol", "info"}
)

// Rotation configures size based rotation of the CSV files.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// lumberjack rotates at 100 MB when MaxSize is unset.
const defaultMaxSizeMB = 100

// csvFile is a CSV writer flushed after every row. It rotates the file
// itself, before lumberjack would, so every new file starts with the header.
type csvFile struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	header []string
	limit  int64
	size   int64

	buf bytes.Buffer
	w   *csv.Writer
}

func openCSV(path string, header []string, rot Rotation) (*csvFile, error) {
	var size int64
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	maxMB := rot.MaxSizeMB
	if maxMB <= 0 {
		maxMB = defaultMaxSizeMB
	}
	f := &csvFile{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rot.MaxSizeMB,
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAgeDays,
			Compress:   rot.Compress,
		},
		header: header,
		limit:  int64(maxMB) << 20,
		size:   size,
	}
	f.w = csv.NewWriter(&f.buf)

	if size == 0 {
		f.mu.Lock()
		err := f.emitHeader()
		f.mu.Unlock()
		if err != nil {
			f.out.Close()
			return nil, err
		}
	}
	return f, nil
}

func (f *csvFile) write(row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	line, err := f.encode(row)
	if err != nil {
		return err
	}
	// lumberjack rotates an existing file once size+write reaches the
	// limit, so rotate at the same point and start the new file with a
	// header.
	if f.size > 0 && f.size+int64(len(line)) >= f.limit {
		if err := f.out.Rotate(); err != nil {
			return fmt.Errorf("rotate %s: %w", f.out.Filename, err)
		}
		f.size = 0
	}
	if f.size == 0 {
		if err := f.emitHeader(); err != nil {
			return err
		}
	}
	return f.emit(line)
}

func (f *csvFile) emitHeader() error {
	line, err := f.encode(f.header)
	if err != nil {
		return err
	}
	return f.emit(line)
}

// encode renders one CSV record. The result is only valid until the next call.
func (f *csvFile) encode(row []string) ([]byte, error) {
	f.buf.Reset()
	if err := f.w.Write(row); err != nil {
		return nil, err
	}
	f.w.Flush()
	if err := f.w.Error(); err != nil {
		return nil, err
	}
	return f.buf.Bytes(), nil
}

func (f *csvFile) emit(line []byte) error {
	n, err := f.out.Write(line)
	f.size += int64(n)
	return err
}

func (f *csvFile) close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Close()
}

// CSV writes network, transport and application events to internet.csv,
// transport.csv and application.csv in one directory.
type CSV struct {
	network   *csvFile
	transport *csvFile
	app       *csvFile
}

// NewCSV creates dir if needed and opens the three event files for append.
func NewCSV(dir string, rot Rotation) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}

	network, err := openCSV(filepath.Join(dir, "internet.csv"), networkHeader, rot)
	if err != nil {
		return nil, err
	}
	transport, err := openCSV(filepath.Join(dir, "transport.csv"), transportHeader, rot)
	if err != nil {
		network.close()
		return nil, err
	}
	app, err := openCSV(filepath.Join(dir, "application.csv"), appHeader, rot)
	if err != nil {
		network.close()
		transport.close()
		return nil, err
	}
	return &CSV{network: network, transport: transport, app: app}, nil
}

func (c *CSV) Network(ev models.NetworkEvent) error {
	return c.network.write([]string{
		ev.Timestamp.UTC().Format(timeLayout),
		ev.Protocol,
		ev.SrcIP.String(),
		ev.DstIP.String(),
		strconv.Itoa(int(ev.IPProto)),
		ev.Info,
		strconv.Itoa(ev.Length),
	})
}

func (c *CSV) Transport(ev models.TransportEvent) error {
	return c.transport.write([]string{
		ev.Timestamp.UTC().Format(timeLayout),
		ev.Protocol,
		ev.SrcIP.String(),
		strconv.Itoa(int(ev.SrcPort)),
		ev.DstIP.String(),
		strconv.Itoa(int(ev.DstPort)),
		strconv.Itoa(ev.Length),
	})
}

func (c *CSV) App(ev models.AppEvent) error {
	return c.app.write([]string{
		ev.Timestamp.UTC().Format(timeLayout),
		ev.App,
		ev.Info,
	})
}

// Close flushes and closes all three files.
func (c *CSV) Close() error {
	return errors.Join(c.network.close(), c.transport.close(), c.app.close())
}
