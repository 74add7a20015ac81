package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/domain"
	"github.com/vbonduro/pinboard/internal/render"
)

// ItemView is the JSON shape of one board item.
type ItemView struct {
	ID      int64          `json:"id"`
	Kind    domain.Kind    `json:"kind"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	W       float64        `json:"w"`
	H       float64        `json:"h"`
	Z       int            `json:"z"`
	Payload domain.Payload `json:"payload"`
}

func newItemView(item board.Item) ItemView {
	pos := item.Position()
	w, h := item.Size()
	return ItemView{
		ID:      item.ID(),
		Kind:    item.Kind(),
		X:       pos.X,
		Y:       pos.Y,
		W:       w,
		H:       h,
		Z:       item.Z(),
		Payload: item.Payload(),
	}
}

func describe(item board.Item) string {
	switch it := item.(type) {
	case *board.Card:
		return fmt.Sprintf("%s (%d%%)", it.Title, it.Progress())
	case *board.Image:
		return it.Path
	case *board.Text:
		first, _, _ := strings.Cut(it.Markup(), "\n")
		return first
	case *board.Stroke:
		return fmt.Sprintf("%d points", len(it.Points()))
	default:
		return ""
	}
}

func (s *Server) handleBoardPage(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	items := s.board.Items()
	s.mu.Unlock()

	if err := s.renderPage(w,
		map[string]any{"Items": items, "Width": s.width, "Height": s.height},
		"base.html", "board.html",
	); err != nil {
		s.logger.Error("render page error", "error", err)
	}
}

// handleBoardPNG paints the board. Query parameters scale, width and height
// override the defaults.
func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	opts := render.Options{Width: s.width, Height: s.height, Scale: 1}
	q := r.URL.Query()
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil || scale <= 0 {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
		opts.Scale = scale
	}
	for name, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 8192 {
				http.Error(w, "invalid "+name, http.StatusBadRequest)
				return
			}
			*dst = n
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.canvas.WritePNG(w, s.board.Items(), opts); err != nil {
		s.logger.Error("render board error", "error", err)
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	items := s.board.Items()
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, newItemView(it))
	}
	s.mu.Unlock()

	writeJSON(w, views)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	item := s.board.Lookup(id)
	var view ItemView
	if item != nil {
		view = newItemView(item)
	}
	s.mu.Unlock()

	if item == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, view)
}

// handleReload rereads the board from storage so changes made by other
// processes show up.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	err := s.board.Load(r.Context())
	s.mu.Unlock()

	if err != nil {
		http.Error(w, "failed to reload board", http.StatusInternalServerError)
		s.logger.Error("reload board error", "error", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding error", http.StatusInternalServerError)
	}
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
