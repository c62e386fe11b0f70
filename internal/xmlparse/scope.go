package xmlparse

import "sppd/internal/errs"

// scope is the ContractFolderStatus scope automaton. One scope instance
// lives for the duration of a single <ContractFolderStatus>..</...> span
// nested inside an <entry>.
type scope struct {
	depth int

	inProject                   bool
	inProjectLot                bool
	inContractingParty          bool
	inTenderResult               bool
	inTenderingProcess           bool
	inTenderingTerms             bool
	inParty                      bool
	inPartyName                  bool
	inWinningParty               bool
	inPartyIdentification        bool
	inPostalAddress              bool
	inPostalAddressCountry       bool
	inCountry                    bool
	inLotCountry                 bool
	inBudgetAmount               bool
	inLotBudgetAmount            bool
	inRequiredClassification     bool
	inLotRequiredClassification  bool
	inAwardedTenderedProject     bool
	inLegalMonetaryTotal         bool
	inAwardingTerms              bool
	inAwardingCriteria           bool
	inDeadlinePeriod             bool

	projectNameCaptured bool
	lotNameCaptured     bool

	entry *Entry
	lot   *ProjectLot

	// flagStack[d-1] is the flag this automaton toggled on the Start at
	// depth d (nil if that Start didn't toggle a tracked flag), so the
	// matching End can clear it.
	flagStack []*bool

	active        *activeField
	activeDepth   int
	activeSawText bool
}

// activeField names the *string slots a captured leaf element writes to:
// the value itself, and optionally a paired currency/listURI slot fed from
// attributes on the same start tag.
type activeField struct {
	value    **string
	currency **string
	listURI  **string
}

func newScope(entry *Entry) *scope {
	return &scope{entry: entry, lot: &ProjectLot{}}
}

// elementFlag returns the flag this local name toggles, contextualized by
// ancestor state for the three elements whose meaning depends on whether
// the enclosing scope is a project or a lot.
func (s *scope) elementFlag(local string) *bool {
	switch local {
	case "ProcurementProject":
		return &s.inProject
	case "ProcurementProjectLot":
		return &s.inProjectLot
	case "ContractingParty":
		return &s.inContractingParty
	case "TenderResult":
		return &s.inTenderResult
	case "TenderingProcess":
		return &s.inTenderingProcess
	case "TenderingTerms":
		return &s.inTenderingTerms
	case "Party":
		return &s.inParty
	case "PartyName":
		return &s.inPartyName
	case "WinningParty":
		return &s.inWinningParty
	case "PartyIdentification":
		return &s.inPartyIdentification
	case "PostalAddress":
		return &s.inPostalAddress
	case "AwardedTenderedProject":
		return &s.inAwardedTenderedProject
	case "LegalMonetaryTotal":
		return &s.inLegalMonetaryTotal
	case "AwardingTerms":
		return &s.inAwardingTerms
	case "AwardingCriteria":
		return &s.inAwardingCriteria
	case "DeadlinePeriod":
		return &s.inDeadlinePeriod
	case "Country":
		if s.inProjectLot {
			return &s.inLotCountry
		}
		if s.inPostalAddress {
			return &s.inPostalAddressCountry
		}
		return &s.inCountry
	case "BudgetAmount":
		if s.inProjectLot {
			return &s.inLotBudgetAmount
		}
		return &s.inBudgetAmount
	case "RequiredClassification":
		if s.inProjectLot {
			return &s.inLotRequiredClassification
		}
		return &s.inRequiredClassification
	default:
		return nil
	}
}

// enterElement runs on every Start within the scope: toggles ancestor
// flags, handles ProcurementProjectLot's accumulator reset, and resolves
// and begins capture of an active field if this element is one.
func (s *scope) enterElement(local string, attrs map[string]string) {
	if local == "ProcurementProjectLot" {
		s.lot = &ProjectLot{}
		s.lotNameCaptured = false
	}
	if local == "ProcurementProject" {
		s.projectNameCaptured = false
	}

	flag := s.elementFlag(local)
	if flag != nil {
		*flag = true
	}
	s.flagStack = append(s.flagStack, flag)

	af := s.resolveActiveField(local)
	if af == nil {
		return
	}
	if af.currency != nil {
		if v, ok := attrs["currencyID"]; ok {
			*af.currency = strPtr(v)
		}
	}
	if af.listURI != nil {
		if v, ok := attrs["listURI"]; ok {
			*af.listURI = strPtr(v)
		}
	}
	if *af.value != nil {
		joined := **af.value + "_"
		*af.value = &joined
	}
	s.active = af
	s.activeDepth = s.depth
	s.activeSawText = false
}

// text appends Text/CData content to the currently capturing field, if any.
func (s *scope) text(t string) {
	if s.active == nil || t == "" {
		return
	}
	if *s.active.value == nil {
		v := t
		*s.active.value = &v
	} else {
		joined := **s.active.value + t
		*s.active.value = &joined
	}
	s.activeSawText = true
}

// exitElement runs on every End within the scope, in depth order: it
// freezes a completed lot, clears whichever flag the matching Start set,
// and closes out leaf capture (including the "ensure field exists as
// empty string" rule for elements with no text content).
func (s *scope) exitElement(local string) error {
	if len(s.flagStack) == 0 {
		return &errs.ParseError{Source: "ContractFolderStatus", Err: errDepthUnderflow}
	}
	flag := s.flagStack[len(s.flagStack)-1]
	s.flagStack = s.flagStack[:len(s.flagStack)-1]

	if s.active != nil && s.activeDepth == s.depth {
		if !s.activeSawText && *s.active.value == nil {
			empty := ""
			*s.active.value = &empty
		}
		s.active = nil
	}

	if local == "ProcurementProjectLot" {
		s.entry.ProjectLots = append(s.entry.ProjectLots, *s.lot)
		s.lot = &ProjectLot{}
	}

	if flag != nil {
		*flag = false
	}
	return nil
}

var errDepthUnderflow = parseErrString("scope depth underflow")

type parseErrString string

func (e parseErrString) Error() string { return string(e) }

// resolveActiveField implements the priority-ordered (flags, local_name)
// table: the first matching predicate wins. Predicates on mutually
// exclusive ancestor flags (the three Country variants, the two
// BudgetAmount variants, the two RequiredClassification variants) are
// listed most-specific first.
//
// The table names a "party id" and "winning party id" field distinct from
// "party name"/"winning party", but the fixed 52-column schema carries no
// such column; an identification captured where a name was already
// expected is written into that same name field, via the ordinary
// multi-value accumulation rule.
func (s *scope) resolveActiveField(local string) *activeField {
	e := s.entry
	l := s.lot

	switch {
	case s.depth == 1 && local == "ContractFolderStatusCode":
		return &activeField{value: &e.StatusCode, listURI: &e.StatusCodeListURI}
	case s.depth == 1 && local == "ContractFolderID":
		return &activeField{value: &e.ContractID}

	// Lot scope, checked before the generic project rules below since a
	// lot is itself nested inside a project.
	case s.inProjectLot && s.inLotCountry && local == "IdentificationCode":
		return &activeField{value: &l.CountryCode, listURI: &l.CountryCodeListURI}
	case s.inProjectLot && s.inLotRequiredClassification && local == "ItemClassificationCode":
		return &activeField{value: &l.CPVCode, listURI: &l.CPVCodeListURI}
	case s.inProjectLot && s.inLotBudgetAmount && local == "TotalAmount":
		return &activeField{value: &l.TotalAmount, currency: &l.TotalCurrency}
	case s.inProjectLot && s.inLotBudgetAmount && local == "TaxExclusiveAmount":
		return &activeField{value: &l.TaxExclusiveAmount, currency: &l.TaxExclusiveCurrency}
	case s.inProjectLot && !s.inLotCountry && !s.inLotBudgetAmount && !s.inLotRequiredClassification && local == "ID":
		return &activeField{value: &l.ID}
	case s.inProjectLot && !s.inLotCountry && local == "Name" && !s.lotNameCaptured:
		s.lotNameCaptured = true
		return &activeField{value: &l.Name}

	// Project scope.
	case s.inProject && !s.inProjectLot && !s.inCountry && local == "Name" && !s.projectNameCaptured:
		s.projectNameCaptured = true
		return &activeField{value: &e.ProjectName}
	case s.inProject && !s.inProjectLot && local == "TypeCode":
		return &activeField{value: &e.ProjectTypeCode, listURI: &e.ProjectTypeCodeListURI}
	case s.inProject && !s.inProjectLot && local == "SubTypeCode":
		return &activeField{value: &e.ProjectSubTypeCode, listURI: &e.ProjectSubTypeCodeListURI}
	case s.inProject && s.inBudgetAmount && local == "TotalAmount":
		return &activeField{value: &e.ProjectTotalAmount, currency: &e.ProjectTotalCurrency}
	case s.inProject && s.inBudgetAmount && local == "TaxExclusiveAmount":
		return &activeField{value: &e.ProjectTaxExclusiveAmount, currency: &e.ProjectTaxExclusiveCurrency}
	case s.inProject && s.inRequiredClassification && local == "ItemClassificationCode":
		return &activeField{value: &e.ProjectCPVCode, listURI: &e.ProjectCPVCodeListURI}
	case s.inProject && s.inCountry && local == "IdentificationCode":
		return &activeField{value: &e.ProjectCountryCode, listURI: &e.ProjectCountryCodeListURI}

	// Contracting party.
	case s.inContractingParty && local == "ContractingPartyTypeCode":
		return &activeField{value: &e.PartyTypeCode, listURI: &e.PartyTypeCodeListURI}
	case s.inContractingParty && local == "ActivityCode":
		return &activeField{value: &e.PartyActivityCode, listURI: &e.PartyActivityCodeListURI}
	case s.inContractingParty && s.inParty && s.inPartyName && local == "Name":
		return &activeField{value: &e.PartyName}
	case s.inContractingParty && s.inParty && s.inPartyIdentification && local == "ID":
		return &activeField{value: &e.PartyName}
	case s.inContractingParty && s.inParty && s.inPostalAddress && s.inPostalAddressCountry && local == "IdentificationCode":
		return &activeField{value: &e.PartyCountryCode, listURI: &e.PartyCountryCodeListURI}
	case s.inContractingParty && s.inParty && s.inPostalAddress && local == "CityName":
		return &activeField{value: &e.PartyCity}
	case s.inContractingParty && s.inParty && s.inPostalAddress && local == "PostalZone":
		return &activeField{value: &e.PartyZip}
	case s.inContractingParty && s.inParty && local == "WebsiteURI":
		return &activeField{value: &e.PartyWebsite}

	// Tender result.
	case s.inTenderResult && s.inWinningParty && s.inPartyName && local == "Name":
		return &activeField{value: &e.ResultWinningParty}
	case s.inTenderResult && s.inWinningParty && s.inPartyIdentification && local == "ID":
		return &activeField{value: &e.ResultWinningParty}
	case s.inTenderResult && local == "ResultCode":
		return &activeField{value: &e.ResultCode, listURI: &e.ResultCodeListURI}
	case s.inTenderResult && local == "Description":
		return &activeField{value: &e.ResultDescription}
	case s.inTenderResult && local == "SMEAwardedIndicator":
		return &activeField{value: &e.ResultSMEAwardedIndicator}
	case s.inTenderResult && local == "AwardDate":
		return &activeField{value: &e.ResultAwardDate}

	case s.inLegalMonetaryTotal && local == "TaxExclusiveAmount":
		return &activeField{value: &e.ResultTaxExclusiveAmount, currency: &e.ResultTaxExclusiveCurrency}
	case s.inLegalMonetaryTotal && local == "PayableAmount":
		return &activeField{value: &e.ResultPayableAmount, currency: &e.ResultPayableCurrency}

	// Tendering process.
	case s.inTenderingProcess && s.inDeadlinePeriod && local == "EndDate":
		return &activeField{value: &e.ProcessEndDate}
	case s.inTenderingProcess && local == "ProcedureCode":
		return &activeField{value: &e.ProcessProcedureCode, listURI: &e.ProcessProcedureCodeListURI}
	case s.inTenderingProcess && local == "UrgencyCode":
		return &activeField{value: &e.ProcessUrgencyCode, listURI: &e.ProcessUrgencyCodeListURI}

	// Tendering terms.
	case s.inTenderingTerms && s.inAwardingTerms && s.inAwardingCriteria && local == "AwardingCriteriaTypeCode":
		return &activeField{value: &e.TermsAwardCriteriaTypeCode, listURI: &e.TermsAwardCriteriaTypeCodeListURI}
	case s.inTenderingTerms && local == "FundingProgramCode":
		return &activeField{value: &e.TermsFundingProgramCode, listURI: &e.TermsFundingProgramCodeListURI}
	}
	return nil
}
