package notify

import (
	"strconv"
	"strings"

	"github.com/mcnotify/mcnotify/internal/status"
)

// DefaultPlayersSeparator joins player names when none is configured.
const DefaultPlayersSeparator = "\n"

// Format substitutes status placeholders in template:
//
//	%version %description %online %max %players %hostname %host %port
//
// %players is the sampled player names joined by sep.
func Format(template string, st *status.Status, sep string) string {
	if !strings.Contains(template, "%") {
		return template
	}
	// %hostname must precede %host.
	r := strings.NewReplacer(
		"%version", st.Version.Name,
		"%description", st.Description.Text,
		"%online", strconv.Itoa(st.Players.Online),
		"%max", strconv.Itoa(st.Players.Max),
		"%players", st.Players.Names(sep),
		"%hostname", st.Hostname,
		"%host", st.Host,
		"%port", strconv.Itoa(int(st.Port)),
	)
	return r.Replace(template)
}

// formatValues copies values, formatting the string ones. Other values pass
// through unchanged. A nil map stays nil.
func formatValues(values map[string]any, st *status.Status, sep string) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			out[k] = Format(s, st, sep)
			continue
		}
		out[k] = v
	}
	return out
}

// pickMessage returns empty when nobody is online and empty is set.
func pickMessage(st *status.Status, message, empty string) string {
	if st.Players.Online == 0 && empty != "" {
		return empty
	}
	return message
}

func separatorOrDefault(sep string) string {
	if sep == "" {
		return DefaultPlayersSeparator
	}
	return sep
}
