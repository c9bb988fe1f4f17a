package devices

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"hilbee/config"
)

// Link is one open serial connection to the dispenser controller board.
// It is created on demand and thrown away on any read failure.
type Link struct {
	Conn     io.ReadWriteCloser
	PortName string
}

// Open opens the port at the given baud rate (8-N-1), bounds reads with the
// configured timeout and flushes whatever the board spewed while unattended.
func Open(portName string, baud int) (*Link, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(config.SerialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}
	flush(port)
	return &Link{Conn: port, PortName: portName}, nil
}

// WriteValue writes an ASCII value with the field terminator the controller
// firmware splits on.
func (l *Link) WriteValue(value string) error {
	_, err := l.Conn.Write([]byte(value + ","))
	return err
}

func (l *Link) Close() {
	l.Conn.Close()
}

// flush drains stale input left in the OS buffer.
func flush(port serial.Port) {
	port.SetReadTimeout(100 * time.Millisecond)
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if err != nil || n == 0 {
			break
		}
	}
	port.SetReadTimeout(config.SerialReadTimeout)
}

// ListPorts returns the serial ports the control panel can offer in its
// dropdown, falling back to well-known names when enumeration yields nothing.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var portNames []string
	for _, port := range ports {
		portNames = append(portNames, port.Name)
	}
	if len(portNames) == 0 {
		portNames = commonPorts()
	}
	return portNames, nil
}

func commonPorts() []string {
	switch runtime.GOOS {
	case "windows":
		var ports []string
		for i := 1; i <= 20; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
		return ports
	case "linux":
		return []string{
			"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3",
			"/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2", "/dev/ttyACM3",
		}
	case "darwin":
		return []string{
			"/dev/cu.usbserial", "/dev/cu.usbmodem",
			"/dev/tty.usbserial", "/dev/tty.usbmodem",
		}
	default:
		return []string{}
	}
}
