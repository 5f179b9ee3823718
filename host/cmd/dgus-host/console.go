package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"dgusui/host/panel"
	"dgusui/host/serial"
	"dgusui/printer"
	"dgusui/protocol"
	"dgusui/ui"
)

// console runs the interactive commands on the main loop
type console struct {
	panel   *panel.Panel
	display *ui.Display
	printer *printer.Simulated
	out     io.Writer
}

// actions names the action variables for the key command
var actions = map[string]protocol.Action{
	"screen":     protocol.ActionScreen,
	"print":      protocol.ActionPrintCommand,
	"wait":       protocol.ActionWait,
	"loadunload": protocol.ActionLoadUnload,
	"leveling":   protocol.ActionLeveling,
	"brightness": protocol.ActionBrightness,
	"versions":   protocol.ActionVersions,
}

// keys names the universal keys
var keys = map[string]protocol.KeyValue{
	"show": protocol.KeyShow,
	"save": protocol.KeySave,
	"back": protocol.KeyBack,
}

// execute runs one command. It returns true when the user asked to quit.
func (c *console) execute(args []string) bool {
	cmd := args[0]
	args = args[1:]

	var err error
	switch cmd {
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Goodbye!")
		return true

	case "help", "?":
		c.printHelp()

	case "key":
		err = c.key(args)

	case "page":
		var n uint64
		if n, err = argNumber(args, 0, 0x0FFF); err == nil {
			err = c.display.Navigator().Show(ui.Page(n), protocol.ActionScreen)
		}

	case "back":
		err = c.display.Navigator().ShowBackPage(1)

	case "forward":
		err = c.display.Navigator().ShowForwardPage()

	case "home":
		err = c.display.Navigator().Reset()

	case "brightness":
		var n uint64
		if n, err = argNumber(args, 1, 100); err == nil {
			err = c.display.SetBrightness(uint8(n))
		}

	case "beep":
		err = c.display.Beep()

	case "message":
		err = c.display.WriteMessage(strings.Join(args, " "))

	case "gcode":
		if len(args) == 0 {
			err = fmt.Errorf("usage: gcode <line> [line...]")
			break
		}
		err = c.printer.InjectCommands(strings.Join(args, "\n"))

	case "print":
		err = c.printer.StartPrint()

	case "media":
		err = c.media(args)

	case "status":
		c.printStatus()

	case "info":
		c.panel.PrintInfo(c.out)

	case "decode":
		var frame []byte
		if frame, err = parseHex(args); err == nil {
			var text string
			if text, err = decodeFrame(frame); err == nil {
				fmt.Fprintln(c.out, text)
			}
		}

	case "reboot":
		err = c.panel.Reboot()

	case "ports":
		var ports []string
		if ports, err = serial.ListPorts(); err == nil {
			for _, p := range ports {
				fmt.Fprintln(c.out, p)
			}
		}

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for available commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, "\nAvailable commands:")
	fmt.Fprintln(c.out, "  key <action> <key>   - Simulate a key press (action by name or number)")
	fmt.Fprintln(c.out, "  page <n>             - Show a picture")
	fmt.Fprintln(c.out, "  back | forward | home - Navigate")
	fmt.Fprintln(c.out, "  brightness <1-100>   - Set the backlight")
	fmt.Fprintln(c.out, "  beep                 - Sound the buzzer")
	fmt.Fprintln(c.out, "  message <text>       - Show a message")
	fmt.Fprintln(c.out, "  gcode <line>...      - Inject G-code, one argument per line")
	fmt.Fprintln(c.out, "  print                - Start a simulated print")
	fmt.Fprintln(c.out, "  media insert|remove  - Simulate the SD card")
	fmt.Fprintln(c.out, "  status               - Printer and navigation state")
	fmt.Fprintln(c.out, "  info                 - Panel connection summary")
	fmt.Fprintln(c.out, "  decode <hex>...      - Describe a frame, e.g. decode 5A A5 04 83 00 10 01")
	fmt.Fprintln(c.out, "  reboot               - Restart the panel")
	fmt.Fprintln(c.out, "  ports                - List serial ports")
	fmt.Fprintln(c.out, "  quit/exit/q          - Exit the program")
	fmt.Fprintln(c.out)
}

func (c *console) key(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: key <action> <key>")
	}
	action, ok := actions[args[0]]
	if !ok {
		n, err := strconv.ParseUint(args[0], 0, 16)
		if err != nil {
			return fmt.Errorf("unknown action %q", args[0])
		}
		action = protocol.Action(n)
	}
	key, ok := keys[args[1]]
	if !ok {
		n, err := strconv.ParseUint(args[1], 0, 16)
		if err != nil {
			return fmt.Errorf("invalid key %q", args[1])
		}
		key = protocol.KeyValue(n)
	}
	c.display.HandleKey(action, key)
	return nil
}

func (c *console) media(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: media insert|remove")
	}
	switch args[0] {
	case "insert":
		c.printer.InsertMedia()
	case "remove":
		c.printer.RemoveMedia()
	default:
		return fmt.Errorf("usage: media insert|remove")
	}
	return nil
}

func (c *console) printStatus() {
	t := c.printer.Temperatures()
	s := c.printer.Status()
	fmt.Fprintf(c.out, "Hotend:   %.1f / %.1f\n", t.HotEnd.Current, t.HotEnd.Target)
	fmt.Fprintf(c.out, "Bed:      %.1f / %.1f\n", t.Bed.Current, t.Bed.Target)
	fmt.Fprintf(c.out, "Z:        %.2f\n", s.ZHeight)
	fmt.Fprintf(c.out, "Homed:    %v\n", c.printer.IsHomed())
	fmt.Fprintf(c.out, "Printing: %v (%d%%)\n", c.printer.IsPrinting(), s.Progress)

	nav := c.display.Navigator()
	fmt.Fprintf(c.out, "Page:     %v\n", nav.Current().Page)
	for i, ctx := range nav.History() {
		fmt.Fprintf(c.out, "  [%d] %v action=0x%04X\n", i, ctx.Page, uint16(ctx.Action))
	}
}

// argNumber parses the first argument in [min, max]
func argNumber(args []string, min, max uint64) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected one number")
	}
	n, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%d out of range [%d, %d]", n, min, max)
	}
	return n, nil
}

// parseHex accepts "5A A5 ..." as well as "5AA5..."
func parseHex(args []string) ([]byte, error) {
	text := strings.Join(args, "")
	if len(text) == 0 || len(text)%2 != 0 {
		return nil, fmt.Errorf("expected an even number of hex digits")
	}
	out := make([]byte, 0, len(text)/2)
	for i := 0; i < len(text); i += 2 {
		b, err := strconv.ParseUint(text[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex %q", text[i:i+2])
		}
		out = append(out, byte(b))
	}
	return out, nil
}

// decodeFrame describes one complete frame
func decodeFrame(frame []byte) (string, error) {
	if len(frame) < protocol.HeaderSize+1 {
		return "", fmt.Errorf("frame too short")
	}
	if frame[0] != protocol.HeaderByte1 || frame[1] != protocol.HeaderByte2 {
		return "", fmt.Errorf("invalid header % X", frame[:2])
	}
	length := int(frame[2])
	if length < protocol.MinLength || len(frame) != protocol.HeaderSize+length {
		return "", fmt.Errorf("length %d does not match %d bytes", length, len(frame)-protocol.HeaderSize)
	}
	cmd := protocol.Command(frame[3])
	if !cmd.Valid() {
		return "", fmt.Errorf("unknown command 0x%02X", frame[3])
	}

	body := frame[4:]
	switch cmd {
	case protocol.WriteRegister, protocol.ReadRegister:
		return fmt.Sprintf("%v register=0x%02X data=[% X]", cmd, body[0], body[1:]), nil
	case protocol.WriteCurve:
		return fmt.Sprintf("%v channels=0x%02X data=[% X]", cmd, body[0], body[1:]), nil
	default:
		if len(body) < 2 {
			return "", fmt.Errorf("%v without variable", cmd)
		}
		v := protocol.Variable(uint16(body[0])<<8 | uint16(body[1]))
		desc := fmt.Sprintf("%v variable=0x%04X data=[% X]", cmd, uint16(v), body[2:])
		if cmd == protocol.ReadRam && protocol.IsAction(v) && len(body) >= 5 {
			desc += fmt.Sprintf(" key=0x%04X", uint16(body[3])<<8|uint16(body[4]))
		}
		return desc, nil
	}
}
