package sqlite

// Schema DDL. Records of every collection share one table; fields are stored
// as a JSON object. position keeps storage order across reloads.
const (
	createRecords = `CREATE TABLE records (
    collection TEXT NOT NULL,
    record_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    fields TEXT NOT NULL,
    PRIMARY KEY (collection, record_id)
);`

	createRecordsPositionIndex = `CREATE INDEX idx_records_position ON records (collection, position);`
)

var schemaStatements = []string{
	createRecords,
	createRecordsPositionIndex,
}
