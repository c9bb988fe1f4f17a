// hilbee is the hardware bridge: it owns the serial link to the dispenser
// controller board, forwards bus-delivered weight values to the board and
// board-reported tap positions to the bus. It survives the board being
// absent, unplugged or replugged without a restart.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"hilbee/bus"
	"hilbee/devices"
	"hilbee/logging"
)

var cli struct {
	Port    string `arg:"" help:"Serial port of the dispenser controller board (e.g. /dev/ttyUSB0)."`
	Baud    int    `env:"HILBEE_BAUD" default:"250000" help:"Serial baud rate."`
	NATSURL string `name:"nats-url" env:"HILBEE_NATS_URL" default:"nats://127.0.0.1:4222" help:"Message bus address."`
}

func main() {
	godotenv.Load()
	kong.Parse(&cli,
		kong.Name("hilbee"),
		kong.Description("Serial bridge between the dispenser hardware and the simulation bus."))

	logging.Init()

	client, err := bus.Connect(cli.NATSURL)
	if err != nil {
		log.Fatalf("bus: %v", err)
	}
	defer client.Close()

	bridge := devices.NewBridge(cli.Port, cli.Baud, client)
	if err := bridge.Start(); err != nil {
		log.Fatalf("weight subscription: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🔌 Bridging %s @ %d baud via %s\n", cli.Port, cli.Baud, cli.NATSURL)
	bridge.Run(ctx.Done())
	fmt.Println("⏹️  Bridge stopped")
}
