package chatcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/papercomputeco/localchat/pkg/llm"
	"github.com/papercomputeco/localchat/pkg/session"
)

// replyMsg carries the outcome of one Send.
type replyMsg struct {
	turn llm.Turn
	err  error
}

// commandMsg carries the output of a slash command that went to the store.
type commandMsg struct {
	lines []string
	err   error
}

// chatModel drives one chat session. Only one Send or store command is in
// flight at a time; the input is blurred until it resolves.
type chatModel struct {
	ctx      context.Context
	ctrl     *session.Controller
	renderer *glamour.TermRenderer

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	blocks  []string
	waiting bool
}

func newChatModel(ctx context.Context, ctrl *session.Controller, renderer *glamour.TermRenderer) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask me anything... (Enter to send, Ctrl+C to exit)"
	ti.Prompt = userLabelStyle.Render("you") + " > "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := chatModel{
		ctx:      ctx,
		ctrl:     ctrl,
		renderer: renderer,
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
	}

	if ws, ok := ctrl.Active(); ok {
		m.appendBlock(metaStyle.Render(fmt.Sprintf("workspace %s (%s)", ws.Name, ws.ModelName)))
	}
	return m
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.input.Width = max(msg.Width-10, 10)
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.appendBlock(errorStyle.Render(msg.turn.Content))
		} else {
			m.appendBlock(m.renderTurn(msg.turn))
		}
		return m, m.input.Focus()

	case commandMsg:
		m.waiting = false
		if msg.err != nil {
			m.appendBlock(errorStyle.Render(msg.err.Error()))
		} else {
			m.appendBlock(strings.Join(msg.lines, "\n"))
		}
		return m, m.input.Focus()

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inputCmd, viewportCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewportCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewportCmd)
}

func (m chatModel) View() string {
	footer := m.input.View()
	if m.waiting {
		footer = m.spinner.View() + metaStyle.Render(" thinking...")
	}
	return m.viewport.View() + "\n" + footer
}

// submit takes the input line and starts the matching action.
func (m chatModel) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}

	if strings.HasPrefix(line, "/") {
		return m.command(line)
	}

	m.appendBlock(userLabelStyle.Render("you") + " " + line)
	return m.await(m.send(line))
}

// await blocks input until cmd reports back.
func (m chatModel) await(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.waiting = true
	m.input.Blur()
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m chatModel) send(text string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		turn, err := ctrl.Send(ctx, text)
		return replyMsg{turn: turn, err: err}
	}
}

func (m chatModel) command(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	ctx, ctrl := m.ctx, m.ctrl

	switch name {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/new":
		ctrl.Reset()
		m.appendBlock(metaStyle.Render("started a new conversation"))
		return m, nil
	case "/workspaces":
		return m.await(func() tea.Msg {
			items, err := ctrl.Workspaces(ctx)
			if err != nil {
				return commandMsg{err: workspaceMessage(err)}
			}
			if len(items) == 0 {
				return commandMsg{lines: []string{metaStyle.Render("no workspaces yet")}}
			}
			lines := make([]string, 0, len(items))
			for _, ws := range items {
				lines = append(lines, fmt.Sprintf("%s  %s  %s", ws.ID, ws.Name, metaStyle.Render(ws.ModelName)))
			}
			return commandMsg{lines: lines}
		})
	case "/open":
		if arg == "" {
			m.appendBlock(errorStyle.Render("usage: /open <workspace-id>"))
			return m, nil
		}
		return m.await(func() tea.Msg {
			ws, err := ctrl.OpenWorkspace(ctx, arg)
			if err != nil {
				return commandMsg{err: workspaceMessage(err)}
			}
			return commandMsg{lines: []string{metaStyle.Render(fmt.Sprintf("opened %s (%s)", ws.Name, ws.ModelName))}}
		})
	default:
		m.appendBlock(errorStyle.Render(fmt.Sprintf("unknown command %s", name)))
		return m, nil
	}
}

func (m chatModel) renderTurn(turn llm.Turn) string {
	rendered, err := m.renderer.Render(turn.Content)
	if err != nil {
		rendered = turn.Content
	}

	var sb strings.Builder
	sb.WriteString(assistantLabelStyle.Render("assistant"))
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(rendered, "\n"))
	if turn.Explanation != "" {
		sb.WriteString("\n")
		sb.WriteString(explanationStyle.Render(turn.Explanation))
	}
	return sb.String()
}

func (m *chatModel) appendBlock(block string) {
	m.blocks = append(m.blocks, block)
	m.viewport.SetContent(strings.Join(m.blocks, "\n\n"))
	m.viewport.GotoBottom()
}
