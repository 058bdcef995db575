package editor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Command is an editor action bound to a key by the host.
type Command uint8

const (
	CmdNone Command = iota
	CmdNew
	CmdSave
	CmdSaveAs
	CmdLoad
	CmdMoveLeft
	CmdMoveRight
	CmdMoveUp
	CmdMoveDown
	CmdMoveNear
	CmdMoveFar
	CmdToggleDebug
	CmdQuit
)

var commandNames = map[Command]string{
	CmdNone:        "none",
	CmdNew:         "new",
	CmdSave:        "save",
	CmdSaveAs:      "save as",
	CmdLoad:        "load",
	CmdMoveLeft:    "move left",
	CmdMoveRight:   "move right",
	CmdMoveUp:      "move up",
	CmdMoveDown:    "move down",
	CmdMoveNear:    "move near",
	CmdMoveFar:     "move far",
	CmdToggleDebug: "toggle debug",
	CmdQuit:        "quit",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

// MoveStep is how far one key press moves the spawner, in world units.
const MoveStep = 0.1

var moves = map[Command]mgl32.Vec3{
	CmdMoveLeft:  {-MoveStep, 0, 0},
	CmdMoveRight: {MoveStep, 0, 0},
	CmdMoveUp:    {0, MoveStep, 0},
	CmdMoveDown:  {0, -MoveStep, 0},
	CmdMoveNear:  {0, 0, -MoveStep},
	CmdMoveFar:   {0, 0, MoveStep},
}

// Execute runs the session-level commands. It returns the file touched by a
// save or load, and reports false for commands the host handles itself.
func (s *Session) Execute(cmd Command, d FileDialog) (path string, handled bool, err error) {
	if delta, ok := moves[cmd]; ok {
		s.MovePosition(delta)
		return "", true, nil
	}
	switch cmd {
	case CmdNew:
		s.New()
		return "", true, nil
	case CmdSave:
		path, err = s.Save(d)
		return path, true, err
	case CmdSaveAs:
		path, err = s.SaveAs(d)
		return path, true, err
	case CmdLoad:
		path, err = s.Load(d)
		return path, true, err
	}
	return "", false, nil
}
