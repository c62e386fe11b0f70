package columnar

import (
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow"

	"sppd/internal/xmlparse"
)

func strp(s string) *string { return &s }

func TestSchemaHasFixedColumnOrderAndTypes(t *testing.T) {
	schema := Schema()
	if schema.NumFields() != len(xmlparse.ColumnNames) {
		t.Fatalf("schema has %d fields, want %d", schema.NumFields(), len(xmlparse.ColumnNames))
	}
	for i, name := range xmlparse.ColumnNames {
		f := schema.Field(i)
		if f.Name != name {
			t.Fatalf("field %d = %q, want %q", i, f.Name, name)
		}
		if !f.Nullable {
			t.Fatalf("field %q must be nullable", name)
		}
		if name == "project_lots" {
			if _, ok := f.Type.(*arrow.ListType); !ok {
				t.Fatalf("project_lots type = %T, want *arrow.ListType", f.Type)
			}
			continue
		}
		if f.Type.ID() != arrow.STRING {
			t.Fatalf("field %q type = %v, want string", name, f.Type)
		}
	}
}

func TestSchemaLotStructHasTenFields(t *testing.T) {
	schema := Schema()
	var lotField arrow.Field
	found := false
	for i := 0; i < schema.NumFields(); i++ {
		if schema.Field(i).Name == "project_lots" {
			lotField = schema.Field(i)
			found = true
		}
	}
	if !found {
		t.Fatal("project_lots column not found")
	}
	listType := lotField.Type.(*arrow.ListType)
	structType, ok := listType.Elem().(*arrow.StructType)
	if !ok {
		t.Fatalf("list element type = %T, want *arrow.StructType", listType.Elem())
	}
	if structType.NumFields() != len(xmlparse.ProjectLotColumnNames) {
		t.Fatalf("lot struct has %d fields, want %d", structType.NumFields(), len(xmlparse.ProjectLotColumnNames))
	}
	for i, name := range xmlparse.ProjectLotColumnNames {
		if structType.Field(i).Name != name {
			t.Fatalf("lot field %d = %q, want %q", i, structType.Field(i).Name, name)
		}
	}
}

func TestBuildRecordNullsMissingFieldsAndKeepsOrder(t *testing.T) {
	entries := []xmlparse.Entry{
		{ID: strp("1"), Title: strp("one")},
		{ID: strp("2")},
	}
	rec := BuildRecord(entries)
	defer rec.Release()

	if rec.NumRows() != 2 {
		t.Fatalf("NumRows() = %d, want 2", rec.NumRows())
	}
	idCol := rec.Column(colIndex(t, rec, "id")).(interface{ Value(int) string })
	if idCol.Value(0) != "1" || idCol.Value(1) != "2" {
		t.Fatalf("unexpected id column contents")
	}

	titleCol := rec.Column(colIndex(t, rec, "title"))
	if titleCol.IsValid(0) == false {
		t.Fatal("row 0 title should be valid")
	}
	if titleCol.IsValid(1) {
		t.Fatal("row 1 title should be null")
	}
}

func TestBuildRecordPopulatesLots(t *testing.T) {
	entries := []xmlparse.Entry{
		{
			ID: strp("1"),
			ProjectLots: []xmlparse.ProjectLot{
				{ID: strp("lot-1"), Name: strp("Lote 1")},
				{ID: strp("lot-2")},
			},
		},
		{ID: strp("2")},
	}
	rec := BuildRecord(entries)
	defer rec.Release()

	lotCol := rec.Column(colIndex(t, rec, "project_lots"))
	if lotCol.IsNull(1) == false && lotCol.Len() != 2 {
		t.Fatalf("unexpected lot column length: %d", lotCol.Len())
	}
}

// TestWriteReadRoundTripPreservesRowsAndCells exercises the write -> read
// property spec.md §8 requires: a batch written to Parquet and read back
// must have the same row count and cell values as the record it came from.
func TestWriteReadRoundTripPreservesRowsAndCells(t *testing.T) {
	entries := []xmlparse.Entry{
		{ID: strp("1"), Title: strp("one"), ProjectLots: []xmlparse.ProjectLot{
			{ID: strp("lot-1"), Name: strp("Lote 1")},
		}},
		{ID: strp("2")},
		{ID: strp("3"), Title: strp("three")},
	}
	rec := BuildRecord(entries)
	defer rec.Release()

	path := filepath.Join(t.TempDir(), "batch_0.parquet")
	if err := WriteRecord(path, rec); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	got, err := readParquetRecord(path)
	if err != nil {
		t.Fatalf("readParquetRecord: %v", err)
	}
	defer got.Release()

	if got.NumRows() != rec.NumRows() {
		t.Fatalf("NumRows() = %d, want %d", got.NumRows(), rec.NumRows())
	}

	idCol := got.Column(colIndex(t, got, "id")).(interface{ Value(int) string })
	wantIDCol := rec.Column(colIndex(t, rec, "id")).(interface{ Value(int) string })
	for i := 0; i < int(rec.NumRows()); i++ {
		if idCol.Value(i) != wantIDCol.Value(i) {
			t.Fatalf("row %d id = %q, want %q", i, idCol.Value(i), wantIDCol.Value(i))
		}
	}

	titleCol := got.Column(colIndex(t, got, "title"))
	if titleCol.IsValid(1) {
		t.Fatal("row 1 title should still be null after round trip")
	}
	wantTitleCol := rec.Column(colIndex(t, rec, "title")).(interface{ Value(int) string })
	gotTitleCol := titleCol.(interface{ Value(int) string })
	if gotTitleCol.Value(0) != wantTitleCol.Value(0) || gotTitleCol.Value(2) != wantTitleCol.Value(2) {
		t.Fatal("round-tripped title values do not match original")
	}

	lotCol := got.Column(colIndex(t, got, "project_lots"))
	if lotCol.Len() != 3 {
		t.Fatalf("project_lots column length = %d, want 3", lotCol.Len())
	}
}

func colIndex(t *testing.T, rec arrow.Record, name string) int {
	t.Helper()
	idx := rec.Schema().FieldIndices(name)
	if len(idx) != 1 {
		t.Fatalf("column %q not found", name)
	}
	return idx[0]
}
