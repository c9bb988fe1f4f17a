// modeld runs the dispenser simulation: it steps the physical model at a
// fixed timestep, trades actuator/weight messages with the hardware bridge
// over the bus and serves the rig panel.
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
	"hilbee/config"
	"hilbee/jar"
	"hilbee/logging"
	"hilbee/model"
	"hilbee/sim"
	"hilbee/types"
	"hilbee/web"
)

var cli struct {
	NATSURL     string  `name:"nats-url" env:"HILBEE_NATS_URL" default:"nats://127.0.0.1:4222" help:"Message bus address."`
	Listen      string  `env:"HILBEE_LISTEN" default:":8080" help:"Rig panel listen address."`
	Rig         string  `env:"HILBEE_RIG" help:"Optional YAML rig description." type:"existingfile" optional:""`
	Fill        float64 `default:"60" help:"Initial fill height in cm."`
	Temperature float64 `default:"20" help:"Honey temperature in °C."`
	Viscosity   string  `default:"medium" enum:"low,medium,high" help:"Honey viscosity preset."`
}

func main() {
	godotenv.Load()
	kctx := kong.Parse(&cli,
		kong.Name("modeld"),
		kong.Description("Honey dispenser HiL simulation process."))

	logging.Init()

	geom := model.DefaultGeometry()
	if cli.Rig != "" {
		rig, err := config.LoadRig(cli.Rig)
		if err != nil {
			kctx.FatalIfErrorf(err)
		}
		applyRig(rig, &geom)
	}

	fmt.Println("🍯 Starting dispenser model...")
	dispenser := model.New(geom)
	dispenser.SetFillHeight(cli.Fill)
	dispenser.SetTemperature(cli.Temperature)
	dispenser.SetViscosityType(cli.Viscosity)

	client, err := bus.Connect(cli.NATSURL)
	if err != nil {
		log.Fatalf("bus: %v", err)
	}
	defer client.Close()
	fmt.Printf("✅ Bus client up (%s)\n", cli.NATSURL)

	actuator := &types.FloatCell{}
	offset := &types.FloatCell{}
	jarCtl := jar.New(dispenser, offset)

	loop := sim.New(dispenser, client, actuator, offset)
	if err := loop.Start(); err != nil {
		log.Fatalf("actuator subscription: %v", err)
	}

	go web.StartServer(cli.Listen, &web.Panel{
		Model:  dispenser,
		Jar:    jarCtl,
		Bus:    client,
		BusURL: cli.NATSURL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("▶️  Simulation loop running (dt=%s)\n", config.StepInterval)
	loop.Run(ctx.Done())

	jarCtl.StopAuto()
	fmt.Println("⏹️  Simulation stopped")
}

// applyRig copies the non-zero rig file fields over the CLI defaults.
func applyRig(rig *config.RigConfig, geom *model.Geometry) {
	if rig.BucketDiameterCm > 0 {
		geom.BucketDiameterCm = rig.BucketDiameterCm
	}
	if rig.BucketHeightCm > 0 {
		geom.BucketHeightCm = rig.BucketHeightCm
	}
	if rig.TapDiameterMm > 0 {
		geom.TapDiameterMm = rig.TapDiameterMm
	}
	if rig.TapToScaleCm > 0 {
		geom.TapToScaleCm = rig.TapToScaleCm
	}
	if rig.InitialFillCm > 0 {
		cli.Fill = rig.InitialFillCm
	}
	if rig.TemperatureC != 0 {
		cli.Temperature = rig.TemperatureC
	}
	if rig.Viscosity != "" {
		cli.Viscosity = rig.Viscosity
	}
	if rig.NATSURL != "" {
		cli.NATSURL = rig.NATSURL
	}
	if rig.Listen != "" {
		cli.Listen = rig.Listen
	}
}
