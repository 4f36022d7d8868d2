package plot

import (
	"bytes"
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/rodrigo-brito/psviewer/model"
	"github.com/rodrigo-brito/psviewer/tools/log"
)

var (
	//go:embed assets
	staticFiles embed.FS
)

// Default size of the served images, in centimeters.
const (
	DefaultWidth  = 16.0
	DefaultHeight = 10.0
)

// Controls is the toolbar state the server exposes and changes.
type Controls interface {
	OptionMap() map[string]bool
	SetOption(name string, enabled bool) error
	Replicas() (distance string, up, down bool)
	SetReplicas(distance string, up, down bool) bool
	SetGrids(horizontal, vertical bool)
	SetLimits(x, y AxisLimits, update bool) error
}

// Server publishes a graph and its toolbar over HTTP.
type Server struct {
	sync.Mutex
	port          int
	debug         bool
	graph         *Graph
	controls      Controls
	router        *mux.Router
	scriptContent string
	indexHTML     *template.Template
	lastUpdate    time.Time
}

type ServerOption func(*Server)

func WithPort(port int) ServerOption {
	return func(s *Server) {
		s.port = port
	}
}

// WithDebug serves the chart script without minification.
func WithDebug() ServerOption {
	return func(s *Server) {
		s.debug = true
	}
}

func NewServer(graph *Graph, controls Controls, options ...ServerOption) (*Server, error) {
	server := &Server{
		port:       8080,
		graph:      graph,
		controls:   controls,
		lastUpdate: time.Now(),
	}
	for _, option := range options {
		option(server)
	}

	chartJS, err := staticFiles.ReadFile("assets/chart.js")
	if err != nil {
		return nil, err
	}

	server.indexHTML, err = template.ParseFS(staticFiles, "assets/chart.html")
	if err != nil {
		return nil, err
	}

	transpileChartJS := api.Transform(string(chartJS), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !server.debug,
		MinifyIdentifiers: !server.debug,
		MinifyWhitespace:  !server.debug,
	})
	if len(transpileChartJS.Errors) > 0 {
		return nil, fmt.Errorf("chart script failed with: %v", transpileChartJS.Errors)
	}
	server.scriptContent = string(transpileChartJS.Code)

	server.router = server.routes()
	return server, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/assets/chart.js", s.handleScript).Methods(http.MethodGet)
	r.HandleFunc("/chart.{format:svg|png}", s.handleImage).Methods(http.MethodGet)
	r.HandleFunc("/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/options", s.handleOptions).Methods(http.MethodPost)
	r.HandleFunc("/replicas", s.handleReplicas).Methods(http.MethodPost)
	r.HandleFunc("/grids", s.handleGrids).Methods(http.MethodPost)
	r.HandleFunc("/limits", s.handleLimits).Methods(http.MethodPost)
	r.HandleFunc("/autoscale", s.handleAutoscale).Methods(http.MethodPost)
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port. It blocks until the server fails.
func (s *Server) Start() error {
	log.Infof("chart available at http://localhost:%d", s.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", s.port), s.router)
}

// Update runs fn while holding the server lock, so requests never see a
// graph in the middle of a change.
func (s *Server) Update(fn func() error) error {
	s.Lock()
	defer s.Unlock()
	err := fn()
	s.lastUpdate = time.Now()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()
	w.Header().Set("Content-type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, err := fmt.Fprintf(w, "%d series, updated at %s", s.graph.Len(), s.lastUpdate.Format(time.RFC3339))
	if err != nil {
		log.Error(err)
	}
}

func (s *Server) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-type", "application/javascript")
	fmt.Fprint(w, s.scriptContent)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()

	options := s.controls.OptionMap()
	names := lo.Keys(options)
	sort.Strings(names)
	distance, _, _ := s.controls.Replicas()

	w.Header().Add("Content-Type", "text/html")
	err := s.indexHTML.Execute(w, map[string]interface{}{
		"title":       s.graph.Title(),
		"options":     options,
		"optionNames": names,
		"distance":    distance,
	})
	if err != nil {
		log.Error(err)
	}
}

func sizeParam(r *http.Request, name string, def float64) float64 {
	value, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	width := sizeParam(r, "width", DefaultWidth)
	height := sizeParam(r, "height", DefaultHeight)

	s.Lock()
	buffer := bytes.NewBuffer(nil)
	err := s.graph.Render(buffer, width, height, format)
	s.Unlock()
	if err != nil {
		log.Errorf("failed rendering chart: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if format == "svg" {
		w.Header().Set("Content-type", "image/svg+xml")
	} else {
		w.Header().Set("Content-type", "image/png")
	}
	if _, err := w.Write(buffer.Bytes()); err != nil {
		log.Errorf("failed writing response: %s", err)
	}
}

type seriesData struct {
	Name string     `json:"name"`
	X    []string   `json:"x"`
	Y    []*float64 `json:"y"`
	Info []string   `json:"info,omitempty"`
}

func texts(values []any) []string {
	return lo.Map(values, func(v any, _ int) string { return model.Normalize(v).String() })
}

func numbers(values []any) []*float64 {
	return lo.Map(values, func(v any, _ int) *float64 {
		if num, ok := model.Normalize(v).Num(); ok && finite(num) {
			return &num
		}
		return nil
	})
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	defer s.Unlock()

	series := make([]seriesData, 0, s.graph.Len())
	for i := 0; i < s.graph.Len(); i++ {
		ts := s.graph.Series(i).TimeSeries
		series = append(series, seriesData{
			Name: ts.Name,
			X:    texts(ts.X),
			Y:    numbers(ts.Y),
			Info: texts(ts.Info),
		})
	}

	xlim, ylim := s.graph.Limits()
	xauto, yauto := s.graph.Autoscaling()
	hgrid, vgrid := s.graph.Grids()
	xlabel, ylabel := s.graph.Labels()

	w.Header().Set("Content-type", "text/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"title":  s.graph.Title(),
		"labels": []string{xlabel, ylabel},
		"series": series,
		"limits": map[string]interface{}{
			"x":    []string{xlim.Min.String(), xlim.Max.String()},
			"y":    []string{ylim.Min.String(), ylim.Max.String()},
			"auto": []bool{xauto, yauto},
		},
		"grids": map[string]bool{
			"horizontal": hgrid,
			"vertical":   vgrid,
		},
		"options":   s.controls.OptionMap(),
		"detrended": s.graph.Detrended(),
	})
	if err != nil {
		log.Error(err)
	}
}

// handleHistory exports the original values of every series as CSV.
func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.Lock()
	rows := make([][]string, 0)
	for i := 0; i < s.graph.Len(); i++ {
		ts, _ := s.graph.Data(i)
		x, y := texts(ts.X), texts(ts.Y)
		info := texts(ts.Info)
		for j := 0; j < max(len(x), len(y)); j++ {
			rows = append(rows, []string{ts.Name, cell(x, j), cell(y, j), cell(info, j)})
		}
	}
	s.Unlock()

	w.Header().Set("Content-type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment;filename=history.csv")

	buffer := bytes.NewBuffer(nil)
	csvWriter := csv.NewWriter(buffer)
	err := csvWriter.Write([]string{"series", "x", "y", "field"})
	if err != nil {
		log.Errorf("failed writing header file: %s", err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	err = csvWriter.WriteAll(rows)
	if err != nil {
		log.Errorf("failed writing data: %s", err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buffer.Bytes()); err != nil {
		log.Errorf("failed writing response: %s", err.Error())
	}
}

// cell is the value at j, empty past the end of values.
func cell(values []string, j int) string {
	if j < len(values) {
		return values[j]
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, value any) bool {
	if err := json.NewDecoder(r.Body).Decode(value); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %s", err), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	var options map[string]bool
	if !decode(w, r, &options) {
		return
	}

	names := lo.Keys(options)
	sort.Strings(names)
	err := s.Update(func() error {
		for _, name := range names {
			if err := s.controls.SetOption(name, options[name]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplicas(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Distance string `json:"distance"`
		Up       bool   `json:"up"`
		Down     bool   `json:"down"`
	}
	if !decode(w, r, &request) {
		return
	}

	var applied bool
	_ = s.Update(func() error {
		applied = s.controls.SetReplicas(request.Distance, request.Up, request.Down)
		return nil
	})
	if !applied {
		http.Error(w, fmt.Sprintf("invalid replica distance %q", request.Distance), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrids(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Horizontal bool `json:"horizontal"`
		Vertical   bool `json:"vertical"`
	}
	if !decode(w, r, &request) {
		return
	}

	_ = s.Update(func() error {
		s.controls.SetGrids(request.Horizontal, request.Vertical)
		return nil
	})
	w.WriteHeader(http.StatusNoContent)
}

// ParseBound reads an axis bound typed in a text field: a number, a date
// or a date-time.
func ParseBound(text string) (model.Value, error) {
	text = strings.TrimSpace(text)
	if num, err := strconv.ParseFloat(text, 64); err == nil {
		return model.FloatValue(num), nil
	}
	value := model.Normalize(text)
	if !value.IsTime() {
		return value, fmt.Errorf("%w: axis bound %q", ErrUnplottable, text)
	}
	return model.DateTimeValue(value.Time), nil
}

// ParseLimits reads the bounds of an axis.
func ParseLimits(min, max string) (AxisLimits, error) {
	lower, err := ParseBound(min)
	if err != nil {
		return AxisLimits{}, err
	}
	upper, err := ParseBound(max)
	if err != nil {
		return AxisLimits{}, err
	}
	return AxisLimits{Min: lower, Max: upper}, nil
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	var request struct {
		X [2]string `json:"x"`
		Y [2]string `json:"y"`
	}
	if !decode(w, r, &request) {
		return
	}

	x, err := ParseLimits(request.X[0], request.X[1])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	y, err := ParseLimits(request.Y[0], request.Y[1])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.Update(func() error {
		return s.controls.SetLimits(x, y, true)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAutoscale(w http.ResponseWriter, _ *http.Request) {
	err := s.Update(func() error {
		s.graph.Autoscale()
		x, y := s.graph.Limits()
		return s.controls.SetLimits(x, y, false)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
