// Package sqlcheck scans materialized migration scripts for statements that
// irreversibly delete data. Findings are diagnostic: the analyzer has already
// gated generation, so the scan only gives operators a second look at what
// the diff tool actually emitted.
package sqlcheck

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Finding is one destructive statement found in a migration script.
type Finding struct {
	Code   string // e.g. "drop_table", "drop_column"
	Object string // table or table.column the statement targets
	Detail string
}

// Scan parses the script and returns a finding per data-loss statement. A
// script that does not parse as Postgres SQL yields no findings; the diff
// tool's output is trusted to be syntactically valid.
func Scan(sqlText string) []Finding {
	tree, err := pg_query.Parse(sqlText)
	if err != nil {
		return nil
	}

	var findings []Finding
	for _, stmt := range tree.Stmts {
		if stmt.Stmt == nil {
			continue
		}
		findings = append(findings, scanStatement(stmt.Stmt)...)
	}
	return findings
}

func scanStatement(stmt *pg_query.Node) []Finding {
	var findings []Finding

	switch node := stmt.Node.(type) {
	case *pg_query.Node_DropStmt:
		dropStmt := node.DropStmt
		if dropStmt.RemoveType == pg_query.ObjectType_OBJECT_TABLE {
			detail := "drops the table and all rows in it"
			if dropStmt.Behavior == pg_query.DropBehavior_DROP_CASCADE {
				detail += "; CASCADE also drops dependent objects"
			}
			findings = append(findings, Finding{
				Code:   "drop_table",
				Object: objectName(dropStmt.Objects),
				Detail: detail,
			})
		}

	case *pg_query.Node_TruncateStmt:
		for _, rel := range node.TruncateStmt.Relations {
			findings = append(findings, Finding{
				Code:   "truncate_table",
				Object: relationName(rel),
				Detail: "removes every row from the table",
			})
		}

	case *pg_query.Node_DeleteStmt:
		deleteStmt := node.DeleteStmt
		if deleteStmt.WhereClause == nil {
			findings = append(findings, Finding{
				Code:   "delete_all_rows",
				Object: rangeVarName(deleteStmt.Relation),
				Detail: "DELETE without a WHERE clause removes every row",
			})
		}

	case *pg_query.Node_AlterTableStmt:
		alterStmt := node.AlterTableStmt
		tableName := rangeVarName(alterStmt.Relation)
		for _, cmd := range alterStmt.Cmds {
			alterCmd, ok := cmd.Node.(*pg_query.Node_AlterTableCmd)
			if !ok {
				continue
			}
			if alterCmd.AlterTableCmd.Subtype == pg_query.AlterTableType_AT_DropColumn {
				findings = append(findings, Finding{
					Code:   "drop_column",
					Object: tableName + "." + alterCmd.AlterTableCmd.Name,
					Detail: "drops the column and all data in it",
				})
			}
		}
	}

	return findings
}

// objectName joins a qualified name list like schema.table.
func objectName(objects []*pg_query.Node) string {
	if len(objects) == 0 {
		return "unknown"
	}
	if listNode, ok := objects[0].Node.(*pg_query.Node_List); ok {
		var names []string
		for _, item := range listNode.List.Items {
			if strNode, ok := item.Node.(*pg_query.Node_String_); ok {
				names = append(names, strNode.String_.Sval)
			}
		}
		return strings.Join(names, ".")
	}
	return "unknown"
}

func relationName(relation *pg_query.Node) string {
	if relation == nil {
		return "unknown"
	}
	if rangeVar, ok := relation.Node.(*pg_query.Node_RangeVar); ok {
		return rangeVarName(rangeVar.RangeVar)
	}
	return "unknown"
}

func rangeVarName(rangeVar *pg_query.RangeVar) string {
	if rangeVar == nil {
		return "unknown"
	}
	if rangeVar.Schemaname != "" {
		return rangeVar.Schemaname + "." + rangeVar.Relname
	}
	return rangeVar.Relname
}
