package web

import (
	"context"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/render"
	"github.com/dukex/flowdesk/pkg/services"
	"github.com/gofiber/fiber/v3"
)

type editorFunc func(ctx context.Context, ed *editor.Editor) error

// respond writes the session and its editor state after fn ran.
func (h *APIHandlers) respond(c fiber.Ctx, status int, id string, mutate bool, fn editorFunc) error {
	run := h.sessions.With
	if mutate {
		run = h.sessions.Mutate
	}

	var state editor.State

	err := run(c.Context(), id, func(ctx context.Context, ed *editor.Editor) error {
		if fn != nil {
			if err := fn(ctx, ed); err != nil {
				return err
			}
		}

		state = ed.State()

		return nil
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	info, err := h.sessions.Get(id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(status).JSON(SessionResponse{Session: info, State: state})
}

// bind decodes and validates the JSON body into req. When ok is false the
// 400 problem has already been written and err is the result of sending it.
func (h *APIHandlers) bind(c fiber.Ctx, req any) (ok bool, err error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return false, badRequest(c, err.Error())
	}

	return true, nil
}

func (h *APIHandlers) OpenSession(c fiber.Ctx) error {
	var req OpenSessionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	info, err := h.sessions.Open(c.Context(), services.OpenRequest{
		TemplateID:   req.TemplateID,
		Name:         req.Name,
		Type:         req.Type,
		ReadOnly:     req.ReadOnly,
		EdgePolicies: req.EdgePolicies,
		Session:      sessionContext(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.respond(c, fiber.StatusCreated, info.ID, false, nil)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), false, nil)
}

func (h *APIHandlers) CloseSession(c fiber.Ctx) error {
	if err := h.sessions.Close(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	var req AddNodeRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusCreated, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		_, err := ed.AddNode(req.Type, req.X, req.Y)

		return err
	})
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	nodeID := c.Params("nodeId")

	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		if req.Position != nil {
			if err := ed.UpdateNodePosition(nodeID, req.Position.X, req.Position.Y); err != nil {
				return err
			}
		}

		return ed.UpdateNodeField(nodeID, editor.NodePatch{Title: req.Title, Description: req.Description})
	})
}

func (h *APIHandlers) UpdateNodeConfig(c fiber.Ctx) error {
	var patch map[string]any
	if err := c.Bind().JSON(&patch); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		return ed.UpdateNodeConfig(c.Params("nodeId"), patch)
	})
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		return ed.DeleteNode(c.Params("nodeId"))
	})
}

func (h *APIHandlers) AddEdge(c fiber.Ctx) error {
	var req AddEdgeRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusCreated, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		_, err := ed.AddEdge(req.Source, req.Target, req.Label)

		return err
	})
}

func (h *APIHandlers) UpdateEdge(c fiber.Ctx) error {
	var req editor.EdgePatch
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		return ed.UpdateEdgeField(c.Params("edgeId"), req)
	})
}

func (h *APIHandlers) DeleteEdge(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		return ed.DeleteEdge(c.Params("edgeId"))
	})
}

func (h *APIHandlers) PointerDown(c fiber.Ctx) error {
	var req PointerRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusOK, c.Params("id"), false, func(_ context.Context, ed *editor.Editor) error {
		return ed.PointerDown(req.NodeID, editor.Point{X: req.X, Y: req.Y})
	})
}

func (h *APIHandlers) PointerMove(c fiber.Ctx) error {
	var req PointerRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusOK, c.Params("id"), false, func(_ context.Context, ed *editor.Editor) error {
		ed.PointerMove(editor.Point{X: req.X, Y: req.Y})

		return nil
	})
}

func (h *APIHandlers) PointerUp(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), false, func(_ context.Context, ed *editor.Editor) error {
		ed.PointerUp()

		return nil
	})
}

func (h *APIHandlers) Drop(c fiber.Ctx) error {
	var req DropRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusCreated, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		_, err := ed.Drop(req.Type, editor.Point{X: req.ClientX, Y: req.ClientY}, req.Canvas)

		return err
	})
}

func (h *APIHandlers) Select(c fiber.Ctx) error {
	var req SelectRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusOK, c.Params("id"), false, func(_ context.Context, ed *editor.Editor) error {
		if req.NodeID != "" {
			return ed.SelectNode(req.NodeID)
		}

		return ed.SelectEdge(req.EdgeID)
	})
}

func (h *APIHandlers) ClickCanvas(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), false, func(_ context.Context, ed *editor.Editor) error {
		ed.ClickCanvas()

		return nil
	})
}

func (h *APIHandlers) Zoom(c fiber.Ctx) error {
	var req ZoomRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	return h.respond(c, fiber.StatusOK, c.Params("id"), false, func(_ context.Context, ed *editor.Editor) error {
		switch {
		case req.Zoom != nil:
			ed.SetZoom(*req.Zoom)
		case req.Action == "in":
			ed.ZoomIn()
		case req.Action == "out":
			ed.ZoomOut()
		default:
			ed.ResetZoom()
		}

		return nil
	})
}

func (h *APIHandlers) Undo(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		ed.Undo()

		return nil
	})
}

func (h *APIHandlers) Redo(c fiber.Ctx) error {
	return h.respond(c, fiber.StatusOK, c.Params("id"), true, func(_ context.Context, ed *editor.Editor) error {
		ed.Redo()

		return nil
	})
}

func (h *APIHandlers) GetPanel(c fiber.Ctx) error {
	var panel editor.PanelView

	err := h.sessions.With(c.Context(), c.Params("id"), func(_ context.Context, ed *editor.Editor) error {
		panel = ed.Panel()

		return nil
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(panel)
}

func (h *APIHandlers) CommitField(c fiber.Ctx) error {
	var req CommitFieldRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	var panel editor.PanelView

	err := h.sessions.Mutate(c.Context(), c.Params("id"), func(_ context.Context, ed *editor.Editor) error {
		if err := ed.CommitField(req.Key, req.Value); err != nil {
			return err
		}

		panel = ed.Panel()

		return nil
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(panel)
}

func (h *APIHandlers) Save(c fiber.Ctx) error {
	var saved SaveResponse

	err := h.sessions.Mutate(c.Context(), c.Params("id"), func(ctx context.Context, ed *editor.Editor) error {
		template, err := ed.Save(ctx)
		if err != nil {
			return err
		}

		saved = SaveResponse{Saved: template != nil, Template: template}

		return nil
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(saved)
}

// Export publishes an export request and returns the document in the
// requested format. Read-only sessions may export.
func (h *APIHandlers) Export(c fiber.Ctx) error {
	format, err := exchange.ParseFormat(c.Query("format"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var document []byte

	ctx := services.WithExportFormat(c.Context(), format)

	err = h.sessions.With(ctx, c.Params("id"), func(ctx context.Context, ed *editor.Editor) error {
		if err := ed.Export(ctx); err != nil {
			return err
		}

		encoded, err := exchange.Encode(ed.Template(), format)
		document = encoded

		return err
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, format.ContentType())

	return c.Send(document)
}

func (h *APIHandlers) RenderSession(c fiber.Ctx) error {
	var scene render.Scene

	err := h.sessions.With(c.Context(), c.Params("id"), func(_ context.Context, ed *editor.Editor) error {
		scene = render.ForState(ed.State())

		return nil
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return sendScene(c, scene)
}
