package web

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/app"
	"github.com/jaminalder/time-travel-tic-tac-toe/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1><form action="/game" method="post"><button>New game</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>Tic-Tac-Toe</h1>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board">{{template "board" .}}</div>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

// renderTemplate executes t, or the named template in its set, into a buffer.
func renderTemplate(t *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = t.Execute(&buf, data)
	} else {
		err = t.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("render template %q: %w", t.Name()+"/"+name, err)
	}
	return buf.Bytes(), nil
}

const boardTemplate = `
<div id="board" class="game">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  <div class="game-board">
  {{range .Rows}}
  <div class="board-row">
    {{range .}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="cell" value="{{.Index}}">
        <button type="submit" class="square{{if .Highlight}} highlight{{end}}">{{.Mark}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  </div>
  <div class="game-info">
    <div class="step">You are at move #{{.Step}}</div>
    <form hx-post="/game/{{.ID}}/order" hx-target="#board" hx-swap="outerHTML" method="post">
      <button type="submit" class="order">{{if .Ascending}}Ascending (click for descending){{else}}Descending (click for ascending){{end}}</button>
    </form>
    <ol class="moves">
    {{range .Moves}}
      <li>
        <form hx-post="/game/{{$.ID}}/jump" hx-target="#board" hx-swap="outerHTML" method="post">
          <input type="hidden" name="step" value="{{.Step}}">
          <button type="submit">{{.Label}}</button>
        </form>
      </li>
    {{end}}
    </ol>
  </div>
</div>
`

// Data models for templates
type cellView struct {
	Index     int
	Mark      string
	Highlight bool
}

type boardView struct {
	ID        string
	Error     string
	Status    string
	Rows      [3][3]cellView
	Step      int
	Ascending bool
	Moves     []domain.Move
}

func newBoardView(gs app.GameState, errMsg string) boardView {
	g := gs.Game
	b := g.CurrentBoard()
	win := make(map[int]bool, 3)
	for _, i := range g.WinningLine() {
		win[i] = true
	}
	v := boardView{
		ID:        gs.ID,
		Error:     errMsg,
		Status:    g.Status(),
		Step:      g.Step(),
		Ascending: g.Ascending(),
		Moves:     g.MoveList(),
	}
	for i, c := range b {
		v.Rows[i/3][i%3] = cellView{Index: i, Mark: c.String(), Highlight: win[i]}
	}
	return v
}
