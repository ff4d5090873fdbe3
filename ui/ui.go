package ui

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arctir/ksched/kernel"
	"github.com/arctir/ksched/proc"
)

const (
	port        = ":8080"
	processPath = "/process/"
	treePath    = "/tree/"
)

// UI is a read-only HTTP dashboard over a live kernel.Kernel. It never
// mutates scheduling state; it only snapshots and renders it.
type UI struct {
	k           *kernel.Kernel
	data        Data
	refreshLock sync.Mutex
}

// Data is what the all-processes view renders.
type Data struct {
	LastRefresh time.Time
	Entities    []kernel.IndexedPCB
}

// DetailKV is one row of the per-entity detail table.
type DetailKV struct {
	Field string
	Value string
}

// New builds a UI over k. Unlike the teacher's ui.New, it takes the
// kernel it is dashboarding explicitly, since (unlike a real OS) a
// kernel.Kernel is a value the caller constructs rather than something
// discovered from the host.
func New(k *kernel.Kernel) *UI {
	return &UI{k: k}
}

func (ui *UI) RunUI() {
	http.HandleFunc("/", ui.handleAllEntities)
	http.HandleFunc(processPath, ui.handleEntityDetails)
	http.HandleFunc(treePath, ui.handleEntityTree)

	log.Printf("serving at %s", port)
	panic(http.ListenAndServe(port, nil))
}

func (ui *UI) handleAllEntities(w http.ResponseWriter, r *http.Request) {
	ui.refreshLock.Lock()
	defer ui.refreshLock.Unlock()

	ui.data = Data{
		LastRefresh: time.Now(),
		Entities:    ui.k.Snapshot(),
	}
	t, err := createTemplate(allEntitiesView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, ui.data); err != nil {
		writeFailure(w, err)
	}
}

func (ui *UI) handleEntityDetails(w http.ResponseWriter, r *http.Request) {
	idxString := strings.TrimPrefix(r.URL.Path, processPath)
	idx, err := strconv.Atoi(idxString)
	if err != nil {
		writeFailure(w, err)
		return
	}

	p, err := ui.k.PCB(idx)
	if err != nil {
		writeFailure(w, fmt.Errorf("no such entity at index %d: %w", idx, err))
		return
	}

	t, err := createTemplate(viewEntityDetails)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, struct {
		Index int
		PCB   proc.PCB
	}{idx, p}); err != nil {
		writeFailure(w, err)
	}
}

func (ui *UI) handleEntityTree(w http.ResponseWriter, r *http.Request) {
	idxString := strings.TrimPrefix(r.URL.Path, treePath)
	idx, err := strconv.Atoi(idxString)
	if err != nil {
		writeFailure(w, err)
		return
	}

	hierarchy, err := getEntityHierarchy(ui.k, idx)
	if err != nil {
		writeFailure(w, err)
		return
	}

	t, err := createTemplate(viewTreeDetails)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, hierarchy); err != nil {
		writeFailure(w, err)
	}
}

// getEntityDetails returns the rows the detail view renders for one PCB.
func getEntityDetails(entry struct {
	Index int
	PCB   proc.PCB
}) []DetailKV {
	p := entry.PCB
	return []DetailKV{
		{"Index", strconv.Itoa(entry.Index)},
		{"Pid", strconv.Itoa(p.Pid)},
		{"Name", p.Name},
		{"State", p.State.String()},
		{"Parent", strconv.Itoa(p.Parent)},
		{"Level", strconv.Itoa(p.Level)},
		{"Ticks", strconv.Itoa(p.Ticks)},
		{"Runtime", strconv.Itoa(p.Runtime)},
		{"PassValue", strconv.Itoa(p.PassValue)},
		{"Stride", strconv.Itoa(p.Stride)},
		{"Portion", strconv.Itoa(p.Portion)},
		{"Tid", strconv.Itoa(p.Tid)},
		{"Manager", strconv.Itoa(p.Manager)},
		{"Killed", fmt.Sprintf("%v", p.Killed)},
	}
}

// getEntityHierarchy returns entities starting with idx and walking
// Parent links up to the root, most-child first.
func getEntityHierarchy(k *kernel.Kernel, idx int) ([]kernel.IndexedPCB, error) {
	var result []kernel.IndexedPCB
	for {
		p, err := k.PCB(idx)
		if err != nil {
			return nil, fmt.Errorf("no such entity at index %d: %w", idx, err)
		}
		result = append(result, kernel.IndexedPCB{Index: idx, PCB: p})
		if p.Parent < 0 || p.Parent == idx {
			break
		}
		idx = p.Parent
	}
	return result, nil
}

// createTemplate returns a final template with temp wrapped in uiHeader/
// uiFooter, the way the teacher's dashboard composes every view.
func createTemplate(temp string) (*template.Template, error) {
	t, err := template.New("response").
		Funcs(template.FuncMap{"eDeets": getEntityDetails}).
		Parse(uiHeader + temp + uiFooter)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func writeFailure(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	t, tErr := createTemplate(errorView)
	if tErr != nil {
		return
	}
	t.Execute(w, err.Error())
}
