package run

// CustomVariable is a user-defined key/value attached to the run.
// Permanent variables are part of the splits data; temporary ones only
// live for the process.
type CustomVariable struct {
	Value       string
	IsPermanent bool
}

// Metadata carries the non-timing information of a run.
type Metadata struct {
	variables map[string]CustomVariable
}

// CustomVariables exposes the variable map. Callers must treat it as
// read-only.
func (m *Metadata) CustomVariables() map[string]CustomVariable {
	return m.variables
}

// SetCustomVariable sets the value of the named variable, creating a
// temporary variable if it does not exist yet. It reports whether the
// variable is permanent.
func (m *Metadata) SetCustomVariable(name, value string) bool {
	if m.variables == nil {
		m.variables = make(map[string]CustomVariable)
	}
	v := m.variables[name]
	v.Value = value
	m.variables[name] = v
	return v.IsPermanent
}

// DeclarePermanentVariable registers a variable that is stored with the
// splits data.
func (m *Metadata) DeclarePermanentVariable(name, value string) {
	if m.variables == nil {
		m.variables = make(map[string]CustomVariable)
	}
	m.variables[name] = CustomVariable{Value: value, IsPermanent: true}
}
