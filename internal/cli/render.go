// Package cli renders status snapshots and the change history as text
// tables for the terminal.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/mcnotify/mcnotify/internal/db"
	"github.com/mcnotify/mcnotify/internal/status"
)

// RenderStatus writes a summary of st followed by the sampled players.
func RenderStatus(w io.Writer, st *status.Status) {
	fmt.Fprintf(w, "\n  Server:       %s (%s)\n", st.Hostname, st.Address())
	fmt.Fprintf(w, "  Version:      %s (protocol %d)\n", st.Version.Name, st.Version.Protocol)
	fmt.Fprintf(w, "  Players:      %d/%d\n", st.Players.Online, st.Players.Max)
	if motd := strings.TrimSpace(st.Description.Text); motd != "" {
		fmt.Fprintf(w, "  MOTD:         %s\n", strings.ReplaceAll(motd, "\n", " / "))
	}

	if len(st.Players.Sample) == 0 {
		fmt.Fprintln(w)
		return
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"#", "Player", "UUID"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for i, p := range st.Players.Sample {
		tw.Append([]string{strconv.Itoa(i + 1), p.Name, p.ID})
	}
	tw.Render()
	fmt.Fprintln(w)
}

// RenderHistory writes entries as a table, in the order given.
func RenderHistory(w io.Writer, entries []db.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No status changes recorded.")
		return
	}

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Time", "Server", "Online", "Version", "Players"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	for _, e := range entries {
		players := strings.Join(e.Players, ", ")
		if players == "" {
			players = "-"
		}
		tw.Append([]string{
			e.ObservedAt.Local().Format(time.DateTime),
			e.Hostname,
			fmt.Sprintf("%d/%d", e.Online, e.Max),
			e.Version,
			players,
		})
	}
	tw.Render()
}
