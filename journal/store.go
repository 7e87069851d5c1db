package journal

// Create writes a changelog file at path containing only the frozen header.
func Create(path string) error {
	return CreateWithHeader(path, Header)
}

// ReadAll reads every transaction row of the changelog at path, in file order.
func ReadAll(path string) ([]Transaction, error) {
	rows, err := ReadAllRaw(path, Header)
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := TransactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Append appends a single transaction to the changelog at path under an
// exclusive whole-file lock. It does not fsync; durability is the caller's
// decision (see AppendSynced).
func Append(path string, txn Transaction) error {
	return AppendRaw(path, Header, txn.Row(), false)
}

// AppendSynced is Append followed by an fsync of the changelog file, for
// callers that need the append durable on return (e.g. immediately before
// signing the file).
func AppendSynced(path string, txn Transaction) error {
	return AppendRaw(path, Header, txn.Row(), true)
}
