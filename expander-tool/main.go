package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/antongulenko/expander/expander"
	"github.com/antongulenko/expander/mcp23017"
	"github.com/antongulenko/golib"
	log "github.com/sirupsen/logrus"
)

type commandFunc func(dev *mcp23017.Device) error

var (
	e          = expander.DefaultExpander
	command    = "dump"
	sleepTime  = 400 * time.Millisecond
	pollTime   = expander.DefaultPollInterval
	outputPins = uint(0xFF)
	regName    = ""
	portName   = "A"
	value      = ""
	commands   = map[string]commandFunc{
		"none":  func(*mcp23017.Device) error { return nil },
		"dump":  dump,
		"setup": setupButtons,
		"watch": watch,
		"blink": blink,
		"set":   setRegister,
	}
)

func main() {
	e.RegisterFlags()
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	flag.DurationVar(&sleepTime, "sleep", sleepTime, "Sleep time between output updates (blink command)")
	flag.DurationVar(&pollTime, "poll", pollTime, "Interrupt polling interval (watch command)")
	flag.UintVar(&outputPins, "pins", outputPins, "Output pins of both ports to toggle (blink command)")
	flag.StringVar(&regName, "reg", regName, "Register to write (set command), e.g. IODIR, GPPU, OLAT")
	flag.StringVar(&portName, "port", portName, "Port to write (set command), A or B")
	flag.StringVar(&value, "value", value, "Value to write (set command), e.g. 0xFE")
	golib.RegisterFlags(golib.FlagsAll)
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}
	dev, err := e.Setup()
	if err != nil {
		return err
	}
	defer e.Cleanup()
	return commandFunc(dev)
}

// INTF comes before INTCAP and GPIO in Registers, so it still shows pending interrupts
// before the dump clears them.
func dump(dev *mcp23017.Device) error {
	for _, reg := range mcp23017.Registers {
		var values [2]byte
		for i, port := range mcp23017.Ports {
			v, err := dev.Read(port, reg)
			if err != nil {
				return err
			}
			values[i] = v
		}
		log.Printf("%-8v A: %#02x (%08b)  B: %#02x (%08b)", reg, values[0], values[0], values[1], values[1])
	}
	return nil
}

// Pin 0 of both ports drives an LED, pin 1 reads a push button to ground.
// INTA/INTB are active-high.
func setupButtons(dev *mcp23017.Device) error {
	for _, port := range mcp23017.Ports {
		cfg := expander.PushButtons(port, mcp23017.PIN1)
		cfg.Inputs = ^mcp23017.PIN0
		log.Printf("Configuring port %v: inputs %08b, buttons %08b", port, cfg.Inputs, cfg.InterruptOnChange)
		if err := cfg.Apply(dev); err != nil {
			return err
		}
	}
	return expander.InterruptConfig{ActiveHigh: true}.Apply(dev)
}

func watch(dev *mcp23017.Device) error {
	monitor := expander.Monitor{Device: dev, Interval: pollTime}
	for _, port := range mcp23017.Ports {
		monitor.Handle(port, 0xFF, func(port mcp23017.Port, pins, captured byte) {
			log.Printf("Interrupt on port %v pins %08b, captured values %08b", port, pins, captured)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Println("Received signal", <-c)
		cancel()
	}()
	log.Printf("Polling interrupts every %v...", monitor.Interval)
	if err := monitor.Run(ctx); err != context.Canceled {
		return err
	}
	return nil
}

// Both ports get the same pin mask
func pinMask(pins uint) (byte, error) {
	if pins > 0xFF {
		return 0, fmt.Errorf("Invalid pin mask %#x (maximum 0xFF)", pins)
	}
	return byte(pins), nil
}

func blink(dev *mcp23017.Device) error {
	pins, err := pinMask(outputPins)
	if err != nil {
		return err
	}
	for _, port := range mcp23017.Ports {
		dir, err := dev.ReadDirection(port)
		if err != nil {
			return err
		}
		if dir&pins != 0 {
			log.Warnf("Pins %08b of port %v are inputs and will not change", dir&pins, port)
		}
	}
	val := pins
	for {
		for _, port := range mcp23017.Ports {
			if err := dev.SetOutputLatch(port, val); err != nil {
				return err
			}
			if values, err := dev.ReadPort(port); err != nil {
				return err
			} else {
				log.Printf("Port %v latch %08b pins %08b", port, val, values)
			}
		}
		val ^= pins
		time.Sleep(sleepTime)
	}
}

func setRegister(dev *mcp23017.Device) error {
	setters := map[string]func(mcp23017.Port, byte) error{
		"IODIR":   dev.SetDirection,
		"IPOL":    dev.SetPolarity,
		"GPINTEN": dev.SetInterruptEnable,
		"DEFVAL":  dev.SetDefaultCompare,
		"INTCON":  dev.SetInterruptControl,
		"IOCON":   dev.SetIOConfig,
		"GPPU":    dev.SetPullUp,
		"GPIO":    dev.SetPort,
		"OLAT":    dev.SetOutputLatch,
	}
	set, ok := setters[strings.ToUpper(regName)]
	if !ok {
		return fmt.Errorf("Register '%v' is unknown or read-only", regName)
	}
	port, err := mcp23017.ParsePort(portName)
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(value, 0, 8)
	if err != nil {
		return fmt.Errorf("Failed to parse value '%v': %v", value, err)
	}
	log.Printf("Writing %#02x to %v of port %v", v, strings.ToUpper(regName), port)
	return set(port, byte(v))
}
