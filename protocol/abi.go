package protocol

// The register and variable maps below must match the firmware flashed on the
// panel. Changing a value breaks the display.

// Register is an 8-bit addressed setting of the display controller
type Register uint8

const (
	RegisterVersion          Register = 0x00
	RegisterBrightness       Register = 0x01
	RegisterBuzzerBeep       Register = 0x02 // in units of 10ms
	RegisterPictureID        Register = 0x03 // 2 bytes
	RegisterTouchPanelFlag   Register = 0x05
	RegisterTouchPanelStatus Register = 0x06
	RegisterTouchPanelEnable Register = 0x0B
	RegisterRTC              Register = 0x20 // 7 bytes
	RegisterResetTrigger     Register = 0xEE // write 5A A5 to reboot the panel
)

// Variable is a 16-bit addressed scratch memory cell of the display
type Variable uint16

const (
	VariableTargetBed     Variable = 0x0000
	VariableCurrentBed    Variable = 0x0001
	VariableTargetHotEnd  Variable = 0x0002
	VariableCurrentHotEnd Variable = 0x0003
	VariableFanSpeed      Variable = 0x0004
	VariableZHeight       Variable = 0x0005
	VariableProgress      Variable = 0x0006

	VariableValue0 Variable = 0x0010
	VariableValue1 Variable = 0x0011
	VariableValue2 Variable = 0x0012
	VariableValue3 Variable = 0x0013

	VariableMessage         Variable = 0x0100
	VariableProgressText    Variable = 0x0120
	VariableLCDVersion      Variable = 0x0140
	VariableFirmwareVersion Variable = 0x0150

	VariableActionFirst Variable = 0x0400
	VariableActionLast  Variable = 0x04FF
)

// Text field widths, in characters
const (
	MessageSize  = 48
	ProgressSize = 24
	VersionSize  = 16
)

// Action is the variable a key press is reported on. It selects the handler
// receiving the key.
type Action uint16

const (
	ActionNone         Action = 0
	ActionScreen       Action = Action(VariableActionFirst) + 0x00
	ActionPrintCommand Action = Action(VariableActionFirst) + 0x01
	ActionWait         Action = Action(VariableActionFirst) + 0x02
	ActionLoadUnload   Action = Action(VariableActionFirst) + 0x03
	ActionLeveling     Action = Action(VariableActionFirst) + 0x04
	ActionBrightness   Action = Action(VariableActionFirst) + 0x05
	ActionVersions     Action = Action(VariableActionFirst) + 0x06
)

// IsAction reports whether v is in the range of action variables
func IsAction(v Variable) bool {
	return v >= VariableActionFirst && v <= VariableActionLast
}

// KeyValue names the on-screen control that was pressed
type KeyValue uint16

// Keys understood by every page
const (
	KeyShow KeyValue = 0x0000
	KeySave KeyValue = 0xFFFE
	KeyBack KeyValue = 0xFFFF
)
