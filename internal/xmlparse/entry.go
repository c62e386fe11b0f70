// Package xmlparse implements the event-driven Atom/ContractFolderStatus
// parser: an outer state machine over <entry> elements and, nested inside
// it, a scope automaton over the <ContractFolderStatus> subtree that
// tracks ancestor predicates (ProcurementProject vs ProcurementProjectLot
// vs Country, etc.) to resolve which business field a given leaf element
// populates.
package xmlparse

// ProjectLot is one row of the repeated ProcurementProjectLot structure.
// All fields are nullable; missing values are left nil.
type ProjectLot struct {
	ID                  *string
	Name                *string
	TotalAmount         *string
	TotalCurrency       *string
	TaxExclusiveAmount  *string
	TaxExclusiveCurrency *string
	CPVCode             *string
	CPVCodeListURI      *string
	CountryCode         *string
	CountryCodeListURI  *string
}

// Entry represents one Atom <entry>..</entry> span: its header fields, the
// ~40 business fields extracted from a single ContractFolderStatus
// subtree, the repeated lots, and the subtree's verbatim raw XML.
type Entry struct {
	// Atom header
	ID      *string
	Title   *string
	Link    *string
	Summary *string
	Updated *string

	// Folder
	StatusCode        *string
	StatusCodeListURI *string
	ContractID        *string

	// Contracting party
	PartyName                  *string
	PartyWebsite               *string
	PartyTypeCode              *string
	PartyTypeCodeListURI       *string
	PartyActivityCode          *string
	PartyActivityCodeListURI   *string
	PartyCity                  *string
	PartyZip                   *string
	PartyCountryCode           *string
	PartyCountryCodeListURI    *string

	// Project
	ProjectName                     *string
	ProjectTypeCode                 *string
	ProjectTypeCodeListURI          *string
	ProjectSubTypeCode              *string
	ProjectSubTypeCodeListURI       *string
	ProjectTotalAmount              *string
	ProjectTotalCurrency            *string
	ProjectTaxExclusiveAmount       *string
	ProjectTaxExclusiveCurrency     *string
	ProjectCPVCode                  *string
	ProjectCPVCodeListURI           *string
	ProjectCountryCode              *string
	ProjectCountryCodeListURI       *string

	ProjectLots []ProjectLot

	// Tender result
	ResultCode                  *string
	ResultCodeListURI           *string
	ResultDescription           *string
	ResultWinningParty          *string
	ResultSMEAwardedIndicator   *string
	ResultAwardDate             *string
	ResultTaxExclusiveAmount    *string
	ResultTaxExclusiveCurrency  *string
	ResultPayableAmount         *string
	ResultPayableCurrency       *string

	// Terms
	TermsFundingProgramCode           *string
	TermsFundingProgramCodeListURI    *string
	TermsAwardCriteriaTypeCode        *string
	TermsAwardCriteriaTypeCodeListURI *string

	// Process
	ProcessEndDate              *string
	ProcessProcedureCode         *string
	ProcessProcedureCodeListURI  *string
	ProcessUrgencyCode           *string
	ProcessUrgencyCodeListURI    *string

	// Raw capture
	CFSRawXML *string
}

// ColumnNames lists the 52 columns in the fixed schema order required by
// the columnar writer. project_lots is the only non-scalar column.
var ColumnNames = []string{
	"id", "title", "link", "summary", "updated",
	"status_code", "status_code_list_uri", "contract_id",
	"contracting_party_name", "contracting_party_website",
	"contracting_party_type_code", "contracting_party_type_code_list_uri",
	"contracting_party_activity_code", "contracting_party_activity_code_list_uri",
	"contracting_party_city", "contracting_party_zip",
	"contracting_party_country_code", "contracting_party_country_code_list_uri",
	"project_name",
	"project_type_code", "project_type_code_list_uri",
	"project_sub_type_code", "project_sub_type_code_list_uri",
	"project_total_amount", "project_total_currency",
	"project_tax_exclusive_amount", "project_tax_exclusive_currency",
	"project_cpv_code", "project_cpv_code_list_uri",
	"project_country_code", "project_country_code_list_uri",
	"project_lots",
	"result_code", "result_code_list_uri",
	"result_description", "result_winning_party",
	"result_sme_awarded_indicator", "result_award_date",
	"result_tax_exclusive_amount", "result_tax_exclusive_currency",
	"result_payable_amount", "result_payable_currency",
	"terms_funding_program_code", "terms_funding_program_code_list_uri",
	"terms_award_criteria_type_code", "terms_award_criteria_type_code_list_uri",
	"process_end_date",
	"process_procedure_code", "process_procedure_code_list_uri",
	"process_urgency_code", "process_urgency_code_list_uri",
	"cfs_raw_xml",
}

// ProjectLotColumnNames lists the ten fields of the project_lots struct, in
// schema order.
var ProjectLotColumnNames = []string{
	"id", "name", "total_amount", "total_currency",
	"tax_exclusive_amount", "tax_exclusive_currency",
	"cpv_code", "cpv_code_list_uri",
	"country_code", "country_code_list_uri",
}

func strPtr(s string) *string { return &s }
