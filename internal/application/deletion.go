package application

// DeletionStep removes the rows of one table that belong to an application.
// Where has exactly one placeholder, bound to the application id.
type DeletionStep struct {
	Table string
	Where string
}

// DeletionPlan lists the tables to clear when a draft is removed, dependents
// first. Executed in order inside one transaction.
var DeletionPlan = []DeletionStep{
	{Table: "ocr_extractions", Where: "receipt_id IN (SELECT id FROM receipts WHERE application_id = ?)"},
	{Table: "receipts", Where: "application_id = ?"},
	{Table: "application_comments", Where: "application_id = ?"},
	{Table: "expense_applications", Where: "id = ?"},
}
