package query

const argExact = "exact"

// criterion is one row of the dispatch table: the arity bounds for argument
// packs and the function that renders a validated pack into a single token.
// Boolean criteria have arity 0 and ignore their (absent) arguments.
type criterion struct {
	minArgs int
	maxArgs int
	render  func(args []string) (string, error)
}

// keyword renders a single-argument criterion as prefix + value.
func keyword(prefix string) criterion {
	return criterion{
		minArgs: 1,
		maxArgs: 1,
		render: func(args []string) (string, error) {
			return prefix + args[0], nil
		},
	}
}

// token renders a boolean criterion as a fixed token.
func token(tok string) criterion {
	return criterion{
		render: func([]string) (string, error) {
			return tok, nil
		},
	}
}

func window(prefix string) criterion {
	return criterion{
		minArgs: 2,
		maxArgs: 2,
		render: func(args []string) (string, error) {
			if args[1] == "" {
				return "", argErr(prefix[:len(prefix)-1], "empty time unit")
			}
			return prefix + args[0] + args[1][:1], nil
		},
	}
}

func renderPhrase(args []string) (string, error) {
	return `"` + args[0] + `"`, nil
}

func renderNear(args []string) (string, error) {
	if len(args) == 4 && args[3] != argExact {
		return "", argErr("near_words", "fourth argument must be %q, got %q", argExact, args[3])
	}
	term := args[0] + " AROUND " + args[2] + " " + args[1]
	if len(args) == 4 {
		term = `"` + term + `"`
	}
	return term, nil
}

// criteria is the closed set of supported criterion names. It is constant
// data: initialized once, never mutated. The labels entry is special-cased in
// renderCriterion because its grouping rules differ from every other
// criterion.
var criteria = map[string]criterion{
	"sender":          keyword("from:"),
	"recipient":       keyword("to:"),
	"subject":         keyword("subject:"),
	"cc":              keyword("cc:"),
	"bcc":             keyword("bcc:"),
	"after":           keyword("after:"),
	"before":          keyword("before:"),
	"spec_attachment": keyword("filename:"),
	"mailing_list":    keyword("list:"),
	"folder":          keyword("in:"),
	"category":        keyword("category:"),
	"delivered_to":    keyword("deliveredto:"),
	"larger":          keyword("larger:"),
	"smaller":         keyword("smaller:"),
	"message_id":      keyword("rfc822msgid:"),

	"exact_phrase": {minArgs: 1, maxArgs: 1, render: renderPhrase},
	"older_than":   window("older_than:"),
	"newer_than":   window("newer_than:"),
	"near_words":   {minArgs: 3, maxArgs: 4, render: renderNear},

	"labels": {},

	"starred":   token("is:starred"),
	"snoozed":   token("is:snoozed"),
	"unread":    token("is:unread"),
	"read":      token("is:read"),
	"important": token("is:important"),

	"attachment": token("has:attachment"),
	"drive":      token("has:drive"),
	"docs":       token("has:document"),
	"sheets":     token("has:spreadsheet"),
	"slides":     token("has:presentation"),
}
