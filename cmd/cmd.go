// Package cmd builds the ksched command-line tool: a small harness that
// boots a kernel.Kernel, populates it with a scripted demo workload (a
// handful of forked processes, one thread group, one stride manager), and
// lets a user inspect or drive its scheduling behavior the way `proctor`
// inspects real OS processes.
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/arctir/ksched/kernel"
	"github.com/arctir/ksched/proc"
	"github.com/arctir/ksched/ui"
)

const (
	cpusFlag  = "cpus"
	ticksFlag = "ticks"
	debugFlag = "debug"
)

var kschedCmd = &cobra.Command{
	Use:   "ksched",
	Short: "A command-line tool for driving and inspecting the hybrid MLFQ/Stride scheduler.",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boots a kernel with a demo workload and runs its scheduler loops for a number of ticks.",
	Run:   runRun,
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "Lists every live PCB in a fresh demo kernel's process table.",
	Run:   runPs,
}

var treeCmd = &cobra.Command{
	Use:   "tree <pid>",
	Short: "Prints a pid's parent chain in a fresh demo kernel.",
	Run:   runTree,
}

var shareCmd = &cobra.Command{
	Use:   "share <pid> <percent>",
	Short: "Calls set_cpu_share(percent) for pid in a fresh demo kernel.",
	Run:   runShare,
}

var boostCmd = &cobra.Command{
	Use:   "boost",
	Short: "Runs a demo workload long enough to demote an entity, then forces a priority_boost.",
	Run:   runBoost,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boots a demo kernel, runs it live in the background, and serves the HTTP dashboard.",
	Run:   runServe,
}

func init() {
	kschedCmd.PersistentFlags().Bool(debugFlag, false, "dump the full kernel/PCB state via spew after the command runs")
	runCmd.Flags().Int(cpusFlag, 2, "number of per-CPU scheduler loops to run")
	runCmd.Flags().Int(ticksFlag, 200, "number of timer ticks to simulate")
}

// SetupCommands wires every subcommand onto the root ksched command and
// executes it, mirroring the teacher's SetupCommands()/Execute() shape.
func SetupCommands() *cobra.Command {
	kschedCmd.AddCommand(runCmd)
	kschedCmd.AddCommand(psCmd)
	kschedCmd.AddCommand(treeCmd)
	kschedCmd.AddCommand(shareCmd)
	kschedCmd.AddCommand(boostCmd)
	kschedCmd.AddCommand(serveCmd)

	if err := kschedCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return kschedCmd
}

// newDemoKernel boots a kernel and populates it with a small, fixed
// workload: initproc, two forked children (the second put under a 30%
// stride share), and a grandchild forked from the first child that owns a
// 2-thread group. It gives every
// subcommand something non-trivial to show without requiring a real
// program loader (out of scope, spec.md §1).
func newDemoKernel() (*kernel.Kernel, error) {
	k := kernel.New(kernel.Config{NumProcs: 32})
	initIdx, err := k.Boot("init")
	if err != nil {
		return nil, err
	}

	mlfqChild, err := k.Fork(initIdx)
	if err != nil {
		return nil, err
	}

	strideChild, err := k.Fork(initIdx)
	if err != nil {
		return nil, err
	}
	if err := k.SetCPUShare(strideChild, 30); err != nil {
		return nil, err
	}

	threadGroup, err := k.Fork(mlfqChild)
	if err != nil {
		return nil, err
	}
	if _, err := k.ThreadCreate(threadGroup, "worker-1"); err != nil {
		return nil, err
	}
	if _, err := k.ThreadCreate(threadGroup, "worker-2"); err != nil {
		return nil, err
	}

	return k, nil
}

func runRun(cmd *cobra.Command, args []string) {
	fs := cmd.Flags()
	numCPU, _ := fs.GetInt(cpusFlag)
	ticks, _ := fs.GetInt(ticksFlag)

	k, err := newDemoKernel()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed booting demo kernel: %s", err))
	}

	cpus := make([]*kernel.CPUState, numCPU)
	for i := range cpus {
		cpus[i] = kernel.NewCPU(i)
	}

	// Drive the scheduler synchronously: each tick, every CPU tries to
	// dispatch once and the dispatched entity immediately yields. There is
	// no real program loader (spec.md §1 out of scope), so "running" an
	// entity here just means letting it occupy a slot for one tick before
	// giving it back.
	for t := 0; t < ticks; t++ {
		for _, cpu := range cpus {
			idx, ok := k.ScheduleNext(cpu)
			if !ok {
				continue
			}
			k.Tick(idx)
			k.Yield(idx)
		}
	}

	fmt.Printf("ran %d ticks across %d CPUs\n", ticks, numCPU)
	printPSTable(k)
	maybeDumpDebug(cmd, k)
}

func runPs(cmd *cobra.Command, args []string) {
	k, err := newDemoKernel()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed booting demo kernel: %s", err))
	}
	printPSTable(k)
	maybeDumpDebug(cmd, k)
}

func runTree(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		cmd.Help()
		return
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("please pass a valid pid (int); we received: %s", args[0]))
	}

	k, err := newDemoKernel()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed booting demo kernel: %s", err))
	}

	chain, err := pidChain(k, pid)
	if err != nil {
		outputErrorAndFail(err.Error())
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"pid", "name", "state", "tid"})
	for _, p := range chain {
		table.Append([]string{
			strconv.Itoa(p.Pid), p.Name, p.State.String(), strconv.Itoa(p.Tid),
		})
	}
	table.Render()
	fmt.Print(buf.String())
	maybeDumpDebug(cmd, k)
}

func runShare(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		cmd.Help()
		return
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("please pass a valid pid (int); we received: %s", args[0]))
	}
	percent, err := strconv.Atoi(args[1])
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("please pass a valid percent (int); we received: %s", args[1]))
	}

	k, err := newDemoKernel()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed booting demo kernel: %s", err))
	}

	idx, err := findIndexByPid(k, pid)
	if err != nil {
		outputErrorAndFail(err.Error())
	}

	if err := k.SetCPUShare(idx, percent); err != nil {
		outputErrorAndFail(fmt.Sprintf("set_cpu_share failed: %s", err))
	}

	fmt.Printf("pid %d now holds a %d%% stride share (stride_tickets=%d)\n", pid, percent, k.StrideTickets())
	maybeDumpDebug(cmd, k)
}

func runBoost(cmd *cobra.Command, args []string) {
	k, err := newDemoKernel()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed booting demo kernel: %s", err))
	}

	// Run enough ticks against whatever the scheduler dispatches first to
	// demote at least one MLFQ entity before boosting, so the before/after
	// table actually shows something changing. The loop stops one tick
	// short of the kernel's own periodic boost, which would otherwise undo
	// the demotions before the "before" table is printed.
	cpu := kernel.NewCPU(0)
	for i := 0; i < kernel.DefaultBoostCadence-1; i++ {
		idx, ok := k.ScheduleNext(cpu)
		if !ok {
			break
		}
		k.Tick(idx)
		k.Yield(idx)
	}

	fmt.Println("before priority_boost:")
	printPSTable(k)

	k.PriorityBoost()

	fmt.Println("after priority_boost:")
	printPSTable(k)
	maybeDumpDebug(cmd, k)
}

func runServe(cmd *cobra.Command, args []string) {
	k, err := newDemoKernel()
	if err != nil {
		outputErrorAndFail(fmt.Sprintf("failed booting demo kernel: %s", err))
	}

	cpu := kernel.NewCPU(0)
	stop := make(chan struct{})
	go k.RunScheduler(cpu, func(idx int) {
		k.Yield(idx)
	}, stop, 50*time.Millisecond)

	ui.New(k).RunUI()
}

// printPSTable renders a snapshot of k's process table as an aligned
// table, the way the teacher's createTableListOutput renders processes.
func printPSTable(k *kernel.Kernel) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"pid", "name", "state", "level", "tid", "portion"})
	for _, entry := range k.Snapshot() {
		p := entry.PCB
		table.Append([]string{
			strconv.Itoa(p.Pid),
			p.Name,
			p.State.String(),
			strconv.Itoa(p.Level),
			strconv.Itoa(p.Tid),
			strconv.Itoa(p.Portion),
		})
	}
	table.Render()
	fmt.Print(buf.String())
}

// pidChain walks Parent links from pid up to initproc, most-child first.
func pidChain(k *kernel.Kernel, pid int) ([]proc.PCB, error) {
	idx, err := findIndexByPid(k, pid)
	if err != nil {
		return nil, err
	}

	var chain []proc.PCB
	for {
		p, err := k.PCB(idx)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
		if p.Parent < 0 || p.Parent == idx {
			break
		}
		idx = p.Parent
	}
	return chain, nil
}

func findIndexByPid(k *kernel.Kernel, pid int) (int, error) {
	for _, entry := range k.Snapshot() {
		if entry.PCB.Pid == pid {
			return entry.Index, nil
		}
	}
	return -1, fmt.Errorf("no such pid %d", pid)
}

func maybeDumpDebug(cmd *cobra.Command, k *kernel.Kernel) {
	debug, _ := cmd.Flags().GetBool(debugFlag)
	if !debug {
		return
	}
	fmt.Println(spew.Sdump(k.Snapshot()))
}

func outputErrorAndFail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
