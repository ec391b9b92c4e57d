package dbutil

// MySQLArgs returns n comma separated mysql placeholders for a query.
func MySQLArgs(n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]byte, 2*n-1)
	for i := 0; i < len(result)-1; i += 2 {
		result[i] = '?'
		result[i+1] = ','
	}
	result[len(result)-1] = '?'
	return string(result)
}

// AppendStringsToInterfaceSlice appends the string slice to the interface slice.
func AppendStringsToInterfaceSlice(ifs []interface{}, ss []string) []interface{} {
	for _, s := range ss {
		ifs = append(ifs, s)
	}
	return ifs
}

// AppendInt64sToInterfaceSlice appends the int64 slice to the interface slice.
func AppendInt64sToInterfaceSlice(ifs []interface{}, is []int64) []interface{} {
	for _, i := range is {
		ifs = append(ifs, i)
	}
	return ifs
}

// VarArgs collects column names and values for building UPDATE statements
// where only a subset of columns change.
type VarArgs struct {
	columns []string
	values  []interface{}
}

// MySQLVarArgs returns an empty VarArgs for a MySQL query.
func MySQLVarArgs() *VarArgs {
	return &VarArgs{}
}

// Append adds a column and its new value.
func (a *VarArgs) Append(column string, value interface{}) {
	a.columns = append(a.columns, column)
	a.values = append(a.values, value)
}

// IsEmpty returns true if no columns have been appended.
func (a *VarArgs) IsEmpty() bool {
	return len(a.columns) == 0
}

// ColumnsForUpdate returns the "col1=?,col2=?" fragment for a SET clause.
func (a *VarArgs) ColumnsForUpdate() string {
	if len(a.columns) == 0 {
		return ""
	}
	n := len(a.columns) * 3
	for _, c := range a.columns {
		n += len(c)
	}
	b := make([]byte, 0, n)
	for i, c := range a.columns {
		if i != 0 {
			b = append(b, ',')
		}
		b = append(b, c...)
		b = append(b, '=', '?')
	}
	return string(b)
}

// Values returns the appended values in order.
func (a *VarArgs) Values() []interface{} {
	return a.values
}
