package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-thumbnail/abi"
	"github.com/wippyai/wasm-thumbnail/bridge"
	"github.com/wippyai/wasm-thumbnail/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Host-side helpers listed next to the guest exports.
const (
	helperLoad   = "load"
	helperSave   = "save"
	helperUnpack = "unpack"
)

type interactiveModel struct {
	err      error
	rt       *host.Runtime
	instance *host.Instance
	filename string
	result   string
	funcs    []funcInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type funcInfo struct {
	name       string
	doc        string
	resultType string
	params     []paramInfo
}

type paramInfo struct {
	name    string
	witType wit.Type
	typeStr string
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err      error
	rt       *host.Runtime
	instance *host.Instance
	funcs    []funcInfo
}

type callResultMsg struct {
	err    error
	result string
}

// explorerFuncs lists the guest exports followed by the host helpers.
func explorerFuncs() []funcInfo {
	var funcs []funcInfo
	for _, f := range abi.Exports {
		fi := funcInfo{name: f.Name, doc: f.Doc}
		for _, p := range f.Params {
			fi.params = append(fi.params, paramInfo{name: p.Name, witType: p.Type, typeStr: abi.TypeName(p.Type)})
		}
		if len(f.Results) > 0 {
			fi.resultType = abi.TypeName(f.Results[0])
		}
		funcs = append(funcs, fi)
	}

	u32 := func(name string) paramInfo { return paramInfo{name: name, witType: wit.U32{}, typeStr: "u32"} }
	str := func(name string) paramInfo { return paramInfo{name: name, witType: wit.String{}, typeStr: "string"} }
	return append(funcs,
		funcInfo{
			name:       helperLoad,
			doc:        "allocate a region and copy a file into it",
			params:     []paramInfo{str("path")},
			resultType: "u64",
		},
		funcInfo{
			name:   helperSave,
			doc:    "copy a region out to a file",
			params: []paramInfo{u32("ptr"), u32("len"), str("path")},
		},
		funcInfo{
			name:       helperUnpack,
			doc:        "split a packed result into (ptr, len)",
			params:     []paramInfo{{name: "packed", witType: wit.U64{}, typeStr: "u64"}},
			resultType: "tuple<u32, u32>",
		},
	)
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadGuest
}

func (m *interactiveModel) loadGuest() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	rt, err := host.New(ctx, data)
	if err != nil {
		return loadedMsg{err: err}
	}

	inst, err := rt.Instantiate(ctx)
	if err != nil {
		rt.Close(ctx)
		return loadedMsg{err: err}
	}

	return loadedMsg{funcs: explorerFuncs(), rt: rt, instance: inst}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break
			}
			ctx := context.Background()
			if m.instance != nil {
				m.instance.Close(ctx)
			}
			if m.rt != nil {
				m.rt.Close(ctx)
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.funcs = msg.funcs
		m.rt = msg.rt
		m.instance = msg.instance

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.instance == nil {
		return callResultMsg{err: fmt.Errorf("guest not loaded")}
	}

	f := m.funcs[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), f.params[i].witType)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", f.params[i].name, err)}
		}
		args[i] = v
	}

	result, err := callExport(context.Background(), m.instance, f.name, args)
	return callResultMsg{result: result, err: err}
}

// callExport runs one explorer function against inst.
func callExport(ctx context.Context, inst *host.Instance, name string, args []any) (string, error) {
	switch name {
	case abi.Allocate:
		ptr, err := inst.Alloc(ctx, args[0].(uint32))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ptr = %d (%#x)", ptr, ptr), nil

	case abi.Deallocate:
		inst.Free(ctx, args[0].(uint32), args[1].(uint32))
		return "ok", nil

	case abi.Thumbnail:
		packed, err := inst.Thumbnail(ctx, args[0].(uint32), args[1].(uint32), args[2].(uint32), args[3].(uint32))
		if err != nil {
			return "", err
		}
		p := bridge.Unpack(packed)
		out := fmt.Sprintf("packed = %#016x\nptr = %d, len = %d", packed, p.Ptr, p.Len)
		if p.Empty() {
			out += "\nempty result (failure)"
			if diag := inst.Diagnostics(); diag != "" {
				out += "\nstderr: " + diag
			}
		}
		return out, nil

	case helperLoad:
		data, err := os.ReadFile(args[0].(string))
		if err != nil {
			return "", err
		}
		ptr, err := inst.Alloc(ctx, uint32(len(data)))
		if err != nil {
			return "", err
		}
		if err := inst.Write(ptr, data); err != nil {
			return "", err
		}
		return fmt.Sprintf("ptr = %d, len = %d", ptr, len(data)), nil

	case helperSave:
		data, err := inst.Read(args[0].(uint32), args[1].(uint32))
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(args[2].(string), data, 0o644); err != nil {
			return "", err
		}
		return fmt.Sprintf("wrote %d bytes", len(data)), nil

	case helperUnpack:
		p := bridge.Unpack(args[0].(uint64))
		return fmt.Sprintf("ptr = %d, len = %d", p.Ptr, p.Len), nil
	}
	return "", fmt.Errorf("unknown function %q", name)
}

func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.String:
		return value, nil
	case wit.U32:
		v, err := strconv.ParseUint(strings.TrimSpace(value), 0, 32)
		return uint32(v), err
	case wit.U64:
		v, err := strconv.ParseUint(strings.TrimSpace(value), 0, 64)
		return v, err
	default:
		return nil, fmt.Errorf("unsupported type %s", abi.TypeName(t))
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.funcs) == 0 {
		return "Loading guest..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Thumbnail ABI"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, f := range m.funcs {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatFunc(f)))
			} else {
				b.WriteString(cursor + m.formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(m.funcs[m.selected].doc))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(f.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	var params []string
	for _, p := range f.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	if f.resultType != "" {
		result = " -> " + typeStyle.Render(f.resultType)
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
