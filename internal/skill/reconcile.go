package skill

// Reconcile merges the slots spoken this turn with the values stored in the
// session. A spoken value wins; a missing or unknown one falls back to the
// stored value. Every key in keys is written back to the returned attributes
// so the session carries the latest value of each across turns. attrs is not
// modified.
func Reconcile(slots map[string]Slot, attrs *Attributes, keys []SlotKey) (Action, *Attributes) {
	updated := attrs.Clone()
	var action Action
	for _, key := range keys {
		value := attrs.Get(key)
		if slot, ok := slots[string(key)]; ok && slot.spoken() {
			value = slot.Value
		}
		action.set(key, value)
		updated.Set(key, value)
	}
	return action, updated
}
