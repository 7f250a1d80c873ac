package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zlnvch/whiteboard/canvas"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/shapes"
)

// Input kinds a client can send.
const (
	InputPointerDown      = "pointer_down"
	InputLayerPointerDown = "layer_pointer_down"
	InputLayerDoubleClick = "layer_double_click"
	InputPointerMove      = "pointer_move"
	InputPointerUp        = "pointer_up"
	InputPointerLeave     = "pointer_leave"
	InputWheel            = "wheel"
	InputKeyDown          = "key_down"
	InputKeyUp            = "key_up"
	InputResizeHandleDown = "resize_handle_down"
	InputTool             = "tool"
	InputZoom             = "zoom"
	InputStyle            = "style"
	InputViewport         = "viewport"
	InputDeleteSelection  = "delete_selection"
	InputBringToFront     = "bring_to_front"
	InputSendToBack       = "send_to_back"
	InputInsertMindMap    = "insert_mindmap"
	InputLayerValue       = "layer_value"
	InputUpdateEntity     = "update_entity"
)

var ErrUnknownInput = errors.New("unknown input")

type layerPointerInput struct {
	Event   canvas.PointerEvent `json:"event"`
	LayerId string              `json:"layerId"`
}

type layerInput struct {
	LayerId string `json:"layerId"`
}

type layerValueInput struct {
	LayerId string `json:"layerId"`
	Value   string `json:"value"`
}

type entityInput struct {
	LayerId   string            `json:"layerId"`
	TableName string            `json:"tableName"`
	Fields    []models.ERDField `json:"fields"`
}

type resizeInput struct {
	Corner models.Side `json:"corner"`
	Bounds models.XYWH `json:"bounds"`
}

type toolInput struct {
	Tool string `json:"tool"`
	// Layer kind for the insert tool
	Kind string `json:"kind,omitempty"`
}

type zoomInput struct {
	Direction string `json:"direction"`
}

type styleInput struct {
	Fill        models.Color  `json:"fill"`
	Stroke      *models.Color `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
}

type viewportInput struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func decode[T any](kind string, data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("%s: missing data", kind)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: %w", kind, err)
	}
	return v, nil
}

// HandleInput feeds one client input to the machine and then pushes the
// resulting state to the participant.
func (s *Session) HandleInput(kind string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.apply(kind, data); err != nil {
		return err
	}

	s.notify(Update{Type: UpdateState, Data: s.stateLocked()})
	return nil
}

func (s *Session) apply(kind string, data json.RawMessage) error {
	m := s.machine

	switch kind {
	case InputPointerDown, InputPointerMove, InputPointerUp, InputPointerLeave:
		e, err := decode[canvas.PointerEvent](kind, data)
		if err != nil {
			return err
		}
		switch kind {
		case InputPointerDown:
			m.PointerDown(e)
		case InputPointerMove:
			m.PointerMove(e)
		case InputPointerUp:
			m.PointerUp(e)
		case InputPointerLeave:
			m.PointerLeave(e)
		}

	case InputLayerPointerDown:
		in, err := decode[layerPointerInput](kind, data)
		if err != nil {
			return err
		}
		m.LayerPointerDown(in.Event, in.LayerId)

	case InputLayerDoubleClick:
		in, err := decode[layerInput](kind, data)
		if err != nil {
			return err
		}
		m.LayerDoubleClick(in.LayerId)

	case InputWheel:
		e, err := decode[canvas.WheelEvent](kind, data)
		if err != nil {
			return err
		}
		m.Wheel(e)

	case InputKeyDown, InputKeyUp:
		e, err := decode[canvas.KeyEvent](kind, data)
		if err != nil {
			return err
		}
		if kind == InputKeyDown {
			m.KeyDown(e)
		} else {
			m.KeyUp(e)
		}

	case InputResizeHandleDown:
		in, err := decode[resizeInput](kind, data)
		if err != nil {
			return err
		}
		m.ResizeHandleDown(in.Corner, in.Bounds)

	case InputTool:
		in, err := decode[toolInput](kind, data)
		if err != nil {
			return err
		}
		return s.selectTool(in)

	case InputZoom:
		in, err := decode[zoomInput](kind, data)
		if err != nil {
			return err
		}
		switch in.Direction {
		case "in":
			m.ZoomIn()
		case "out":
			m.ZoomOut()
		case "reset":
			m.ResetZoom()
		default:
			return fmt.Errorf("zoom: unknown direction %q", in.Direction)
		}

	case InputStyle:
		in, err := decode[styleInput](kind, data)
		if err != nil {
			return err
		}
		style := shapes.Style{Fill: in.Fill, Stroke: in.Stroke, StrokeWidth: in.StrokeWidth}
		if err := ValidateStyle(style); err != nil {
			return err
		}
		previous := m.Style().Fill
		m.SetStyle(style)
		if !sameColor(previous, style.Fill) {
			m.SetSelectionFill(style.Fill)
		}

	case InputViewport:
		in, err := decode[viewportInput](kind, data)
		if err != nil {
			return err
		}
		if in.Width < 0 || in.Height < 0 {
			return errors.New("viewport: negative size")
		}
		m.SetViewport(in.Width, in.Height)

	case InputDeleteSelection:
		m.DeleteSelection()

	case InputBringToFront:
		m.BringToFront()

	case InputSendToBack:
		m.SendToBack()

	case InputInsertMindMap:
		mm, err := decode[canvas.MindMap](kind, data)
		if err != nil {
			return err
		}
		if err := ValidateMindMap(mm); err != nil {
			return err
		}
		m.InsertMindMap(mm)

	case InputLayerValue:
		in, err := decode[layerValueInput](kind, data)
		if err != nil {
			return err
		}
		if err := ValidateLayerValue(in.Value); err != nil {
			return err
		}
		m.SetLayerValue(in.LayerId, in.Value)

	case InputUpdateEntity:
		in, err := decode[entityInput](kind, data)
		if err != nil {
			return err
		}
		if err := ValidateEntity(in.TableName, in.Fields); err != nil {
			return err
		}
		m.UpdateEntity(in.LayerId, in.TableName, NormalizeEntityFields(in.Fields))

	default:
		return fmt.Errorf("%w: %q", ErrUnknownInput, kind)
	}

	return nil
}

func (s *Session) selectTool(in toolInput) error {
	m := s.machine

	switch in.Tool {
	case "select":
		m.Reset()
	case "insert":
		kind, err := shapes.ParseKind(in.Kind)
		if err != nil {
			return fmt.Errorf("tool: %w", err)
		}
		m.BeginInsert(kind)
	case "pencil":
		m.EnterPencil()
	case "eraser":
		m.EnterEraser()
	case "erd":
		m.EnterERDConnect()
	case "hand":
		m.ToggleHand()
	default:
		return fmt.Errorf("tool: unknown tool %q", in.Tool)
	}
	return nil
}

func sameColor(a, b models.Color) bool {
	if a.R != b.R || a.G != b.G || a.B != b.B {
		return false
	}
	if a.A == nil || b.A == nil {
		return a.A == b.A
	}
	return *a.A == *b.A
}
