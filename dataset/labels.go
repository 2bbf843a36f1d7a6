package dataset

// LabelMap is the bijection between label strings and the integer codes
// assigned by EncodeLabels. It lives for one run and is never persisted.
type LabelMap struct {
	index map[string]int
	names []string
}

// EncodeLabels assigns codes 0..k-1 to the k distinct labels in the order
// they are first encountered and returns the encoded sequence with its map.
func EncodeLabels(labels []string) ([]int, *LabelMap) {
	m := &LabelMap{index: make(map[string]int)}
	out := make([]int, len(labels))
	for i, label := range labels {
		code, ok := m.index[label]
		if !ok {
			code = len(m.names)
			m.index[label] = code
			m.names = append(m.names, label)
		}
		out[i] = code
	}
	return out, m
}

// Len returns the number of distinct labels.
func (m *LabelMap) Len() int {
	return len(m.names)
}

// Index returns the code of label.
func (m *LabelMap) Index(label string) (int, bool) {
	code, ok := m.index[label]
	return code, ok
}

// Name returns the label encoded as code.
func (m *LabelMap) Name(code int) (string, bool) {
	if code < 0 || code >= len(m.names) {
		return "", false
	}
	return m.names[code], true
}

// Names returns the labels ordered by code.
func (m *LabelMap) Names() []string {
	return append([]string(nil), m.names...)
}
