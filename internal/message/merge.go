package message

// Merge reconciles a fetched conversation history with the locally held
// sequence. The fetched order wins; local messages the history does not yet
// contain are appended after it in their original order.
//
// A local message is represented in the history when a fetched record has the
// same ID, or, for records the backend sent without an ID, the same role and
// content. Each anonymous fetched record accounts for at most one local
// message. Call Merge before FillIDs so anonymous records can still match.
func Merge(local, fetched []Message) []Message {
	out := make([]Message, 0, len(fetched)+len(local))
	out = append(out, fetched...)

	byID := make(map[string]bool, len(fetched))
	anonymous := make(map[contentKey]int)
	for _, f := range fetched {
		if f.ID != "" {
			byID[f.ID] = true
			continue
		}
		anonymous[keyOf(f)]++
	}

	for _, l := range local {
		if l.ID != "" && byID[l.ID] {
			continue
		}
		if k := keyOf(l); anonymous[k] > 0 {
			anonymous[k]--
			continue
		}
		out = append(out, l)
	}
	return out
}

type contentKey struct {
	role    Role
	content string
}

func keyOf(m Message) contentKey {
	return contentKey{role: m.Role, content: m.Content}
}

// FillIDs assigns fresh identifiers, in place, to messages that arrived
// without one.
func FillIDs(msgs []Message) []Message {
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = NewID()
		}
	}
	return msgs
}
