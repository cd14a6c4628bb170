// SPDX-License-Identifier: MIT
package params

import "fmt"

// Field names a RenderParameters field a Command targets.
type Field uint8

const (
	FieldAmplitude Field = iota
	FieldFrequency
	FieldSpeed
	FieldHue
	FieldMode
)

func (f Field) String() string {
	switch f {
	case FieldAmplitude:
		return "amplitude"
	case FieldFrequency:
		return "frequency"
	case FieldSpeed:
		return "speed"
	case FieldHue:
		return "hue"
	case FieldMode:
		return "mode"
	default:
		return fmt.Sprintf("Field(%d)", uint8(f))
	}
}

// Command is a single-field update sent from the input surface to the frame
// loop. Each Command fully replaces one field.
type Command struct {
	Field Field
	Value float32
	Mode  Mode
}

func SetAmplitude(v float32) Command { return Command{Field: FieldAmplitude, Value: v} }
func SetFrequency(v float32) Command { return Command{Field: FieldFrequency, Value: v} }
func SetSpeed(v float32) Command     { return Command{Field: FieldSpeed, Value: v} }
func SetHue(v float32) Command       { return Command{Field: FieldHue, Value: v} }
func SetMode(m Mode) Command         { return Command{Field: FieldMode, Mode: m} }

func (cmd Command) String() string {
	if cmd.Field == FieldMode {
		return "mode=" + cmd.Mode.String()
	}
	return fmt.Sprintf("%s=%.3f", cmd.Field, cmd.Value)
}

// Apply runs cmd against the controller.
func (c *Controller) Apply(cmd Command) {
	switch cmd.Field {
	case FieldAmplitude:
		c.SetAmplitude(cmd.Value)
	case FieldFrequency:
		c.SetFrequency(cmd.Value)
	case FieldSpeed:
		c.SetSpeed(cmd.Value)
	case FieldHue:
		c.SetHue(cmd.Value)
	case FieldMode:
		c.SetMode(cmd.Mode)
	}
}
