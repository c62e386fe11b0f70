// Package columnar converts parsed Entry batches into the fixed 52-column
// Arrow schema and writes them out as Parquet files, one per batch, with
// optional per-period concatenation.
package columnar

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"sppd/internal/errs"
	"sppd/internal/xmlparse"
)

// lotStructType is the Arrow type of one project_lots element: ten
// nullable string fields, in the schema order of xmlparse.ProjectLotColumnNames.
var lotStructType = arrow.StructOf(lotFields()...)

func lotFields() []arrow.Field {
	fields := make([]arrow.Field, len(xmlparse.ProjectLotColumnNames))
	for i, name := range xmlparse.ProjectLotColumnNames {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	return fields
}

// Schema is the fixed 52-column schema: every business field as a
// nullable string, plus project_lots as a List<Struct<...>>.
func Schema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(xmlparse.ColumnNames))
	for _, name := range xmlparse.ColumnNames {
		if name == "project_lots" {
			fields = append(fields, arrow.Field{Name: name, Type: arrow.ListOf(lotStructType), Nullable: true})
			continue
		}
		fields = append(fields, arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

// BuildRecord materializes entries into a single Arrow record using the
// fixed schema. The caller must Release() the returned record.
func BuildRecord(entries []xmlparse.Entry) arrow.Record {
	mem := memory.NewGoAllocator()
	schema := Schema()

	builders := make(map[string]*array.StringBuilder, len(xmlparse.ColumnNames)-1)
	for _, name := range xmlparse.ColumnNames {
		if name == "project_lots" {
			continue
		}
		builders[name] = array.NewStringBuilder(mem)
	}

	lotListBuilder := array.NewListBuilder(mem, lotStructType)
	lotStructBuilder := lotListBuilder.ValueBuilder().(*array.StructBuilder)

	for _, e := range entries {
		appendScalarFields(builders, e)

		lotListBuilder.Append(true)
		for _, lot := range e.ProjectLots {
			lotStructBuilder.Append(true)
			appendLotFields(lotStructBuilder, lot)
		}
	}

	cols := make([]arrow.Array, len(xmlparse.ColumnNames))
	for i, name := range xmlparse.ColumnNames {
		if name == "project_lots" {
			cols[i] = lotListBuilder.NewListArray()
			continue
		}
		cols[i] = builders[name].NewStringArray()
	}

	return array.NewRecord(schema, cols, int64(len(entries)))
}

func appendScalarFields(builders map[string]*array.StringBuilder, e xmlparse.Entry) {
	values := map[string]*string{
		"id": e.ID, "title": e.Title, "link": e.Link, "summary": e.Summary, "updated": e.Updated,
		"status_code": e.StatusCode, "status_code_list_uri": e.StatusCodeListURI, "contract_id": e.ContractID,
		"contracting_party_name": e.PartyName, "contracting_party_website": e.PartyWebsite,
		"contracting_party_type_code": e.PartyTypeCode, "contracting_party_type_code_list_uri": e.PartyTypeCodeListURI,
		"contracting_party_activity_code": e.PartyActivityCode, "contracting_party_activity_code_list_uri": e.PartyActivityCodeListURI,
		"contracting_party_city": e.PartyCity, "contracting_party_zip": e.PartyZip,
		"contracting_party_country_code": e.PartyCountryCode, "contracting_party_country_code_list_uri": e.PartyCountryCodeListURI,
		"project_name": e.ProjectName,
		"project_type_code": e.ProjectTypeCode, "project_type_code_list_uri": e.ProjectTypeCodeListURI,
		"project_sub_type_code": e.ProjectSubTypeCode, "project_sub_type_code_list_uri": e.ProjectSubTypeCodeListURI,
		"project_total_amount": e.ProjectTotalAmount, "project_total_currency": e.ProjectTotalCurrency,
		"project_tax_exclusive_amount": e.ProjectTaxExclusiveAmount, "project_tax_exclusive_currency": e.ProjectTaxExclusiveCurrency,
		"project_cpv_code": e.ProjectCPVCode, "project_cpv_code_list_uri": e.ProjectCPVCodeListURI,
		"project_country_code": e.ProjectCountryCode, "project_country_code_list_uri": e.ProjectCountryCodeListURI,
		"result_code": e.ResultCode, "result_code_list_uri": e.ResultCodeListURI,
		"result_description": e.ResultDescription, "result_winning_party": e.ResultWinningParty,
		"result_sme_awarded_indicator": e.ResultSMEAwardedIndicator, "result_award_date": e.ResultAwardDate,
		"result_tax_exclusive_amount": e.ResultTaxExclusiveAmount, "result_tax_exclusive_currency": e.ResultTaxExclusiveCurrency,
		"result_payable_amount": e.ResultPayableAmount, "result_payable_currency": e.ResultPayableCurrency,
		"terms_funding_program_code": e.TermsFundingProgramCode, "terms_funding_program_code_list_uri": e.TermsFundingProgramCodeListURI,
		"terms_award_criteria_type_code": e.TermsAwardCriteriaTypeCode, "terms_award_criteria_type_code_list_uri": e.TermsAwardCriteriaTypeCodeListURI,
		"process_end_date": e.ProcessEndDate,
		"process_procedure_code": e.ProcessProcedureCode, "process_procedure_code_list_uri": e.ProcessProcedureCodeListURI,
		"process_urgency_code": e.ProcessUrgencyCode, "process_urgency_code_list_uri": e.ProcessUrgencyCodeListURI,
		"cfs_raw_xml": e.CFSRawXML,
	}
	for name, b := range builders {
		appendNullableString(b, values[name])
	}
}

func appendLotFields(b *array.StructBuilder, lot xmlparse.ProjectLot) {
	fields := []*string{
		lot.ID, lot.Name, lot.TotalAmount, lot.TotalCurrency,
		lot.TaxExclusiveAmount, lot.TaxExclusiveCurrency,
		lot.CPVCode, lot.CPVCodeListURI,
		lot.CountryCode, lot.CountryCodeListURI,
	}
	for i, v := range fields {
		appendNullableString(b.FieldBuilder(i).(*array.StringBuilder), v)
	}
}

func appendNullableString(b *array.StringBuilder, v *string) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}

// WriteRecord writes rec to path as a single-row-group Parquet file using
// Snappy compression, matching the batch/merged-period output layout.
func WriteRecord(path string, rec arrow.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return &errs.IoError{Op: "create " + path, Err: err}
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrProps := pqarrow.DefaultWriterProps()

	writer, err := pqarrow.NewFileWriter(rec.Schema(), f, props, arrProps)
	if err != nil {
		return &errs.IoError{Op: "open parquet writer " + path, Err: err}
	}

	if err := writer.Write(rec); err != nil {
		writer.Close()
		return &errs.IoError{Op: "write parquet " + path, Err: fmt.Errorf("%w", err)}
	}
	if err := writer.Close(); err != nil {
		return &errs.IoError{Op: "close parquet writer " + path, Err: err}
	}
	return nil
}
