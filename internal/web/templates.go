package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/jaminalder/tic-tac-toe-history/internal/app"
	"github.com/jaminalder/tic-tac-toe-history/internal/domain"
)

// Pages are executed through "base"; "content" is the per-page block.
type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"cellClass": func(c domain.Cell) string {
			switch c {
			case domain.X:
				return "square green"
			case domain.O:
				return "square pink"
			default:
				return "square"
			}
		},
		"add": func(a, b int) int { return a + b },
		"mul": func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
<style>` + styles + `</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<div id="title">Tic-Tac-Toe</div>
<form action="/game" method="post"><button>New game</button></form>
{{if .Resume}}<a id="resume" href="/game/{{.Resume}}">Resume game</a>{{end}}`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board" hx-target="#game" hx-swap="outerHTML"></div>
  {{template "board" .}}
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if name == "" {
		err = t.Execute(&buf, data)
	} else {
		err = t.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// boardData is what the board template renders.
type boardData struct {
	ID    string
	Snap  domain.Snapshot
	Error string
}

func newBoardData(s app.Session, errMsg string) boardData {
	return boardData{ID: s.ID, Snap: s.Game.Snapshot(), Error: errMsg}
}

const boardTemplate = `
<div id="game" class="game">
  <div id="title">Tic-Tac-Toe</div>
  <div id="status">{{.Snap.Status}}</div>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="game-board">
    <div id="board">
    {{range $r := iter 3}}
      <div class="board-row">
      {{range $c := iter 3}}{{$i := add (mul $r 3) $c}}{{$cell := index $.Snap.Board $i}}
        <form hx-post="/game/{{$.ID}}/play" hx-target="#game" hx-swap="outerHTML" action="/game/{{$.ID}}/play" method="post">
          <input type="hidden" name="cell" value="{{$i}}">
          <button type="submit" class="{{cellClass $cell}}{{if $.Snap.OnWinningLine $i}} winning{{end}}">{{$cell}}</button>
        </form>
      {{end}}
      </div>
    {{end}}
    </div>
  </div>
  <div class="game-info">
    <ol>
    {{range .Snap.Moves}}
      <li>
        <form hx-post="/game/{{$.ID}}/jump" hx-target="#game" hx-swap="outerHTML" action="/game/{{$.ID}}/jump" method="post">
          <input type="hidden" name="step" value="{{.Step}}">
          <button type="submit" class="jumpToBtn{{if .Current}} current{{end}}">{{.Label}}</button>
        </form>
      </li>
    {{end}}
    </ol>
    <form hx-post="/game/{{.ID}}/restart" hx-target="#game" hx-swap="outerHTML" action="/game/{{.ID}}/restart" method="post">
      <button type="submit" class="restartBtn">Restart</button>
    </form>
  </div>
</div>
`

const styles = `
body { font: 14px "Century Gothic", Futura, sans-serif; margin: 20px; }
#title { font-size: 28px; margin-bottom: 10px; }
#status { margin-bottom: 10px; }
.game { display: flex; flex-direction: column; }
.game-info { margin-top: 20px; }
.board-row { display: flex; }
.board-row form { margin: 0; }
.square { background: #fff; border: 1px solid #999; font-size: 24px; font-weight: bold; height: 48px; width: 48px; margin: -1px -1px 0 0; padding: 0; }
.square.green { color: #2e8b57; }
.square.pink { color: #d63384; }
.square.winning { background: #fff3b0; }
.jumpToBtn.current { font-weight: bold; }
.alert { color: #b00020; margin-bottom: 10px; }
`

// Helper to set cookie pointing the browser at its session.
func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
}

const sessionCookie = "game_id"
