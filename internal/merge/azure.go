package merge

import "strings"

// AzureMigrateVMLimit is the maximum number of VMs an Azure Migrate import
// accepts per assessment.
const AzureMigrateVMLimit = 20000

// AzureFailureReason classifies why a vInfo row would be rejected by Azure
// Migrate.
type AzureFailureReason string

const (
	ReasonMissingVMUUID          AzureFailureReason = "Missing VM UUID"
	ReasonMissingOSConfiguration AzureFailureReason = "Missing OS configuration"
	ReasonDuplicateVMUUID        AzureFailureReason = "Duplicate VM UUID"
	ReasonVMCountExceeded        AzureFailureReason = "VM count limit exceeded"
)

// AzureFailedRow pairs a rejected row with the first rule it violated.
type AzureFailedRow struct {
	Row    []string
	Reason AzureFailureReason
}

// AzureValidationResult aggregates one validation pass over the merged vInfo
// rows.
type AzureValidationResult struct {
	FailedRows                  []AzureFailedRow
	MissingVMUUIDCount          int
	MissingOSConfigurationCount int
	DuplicateVMUUIDCount        int
	VMCountLimitReached         bool
	TotalVMsProcessed           int
}

// ValidateAzureMigrateRow applies the Azure Migrate rules to one row. Checks
// run in a fixed priority order and the first violation wins: count ceiling,
// missing UUID, missing OS configuration, duplicate UUID. On success the
// row's UUID is recorded into seen, which the caller owns.
func ValidateAzureMigrateRow(row []string, vmUUIDIdx, osConfigIdx int, seen map[string]struct{}, validSoFar int) (AzureFailureReason, bool) {
	if validSoFar >= AzureMigrateVMLimit {
		return ReasonVMCountExceeded, false
	}
	if vmUUIDIdx < 0 || vmUUIDIdx >= len(row) || IsBlank(row[vmUUIDIdx]) {
		return ReasonMissingVMUUID, false
	}
	if osConfigIdx < 0 || osConfigIdx >= len(row) || IsBlank(row[osConfigIdx]) {
		return ReasonMissingOSConfiguration, false
	}

	uuid := strings.TrimSpace(row[vmUUIDIdx])
	if _, dup := seen[uuid]; dup {
		return ReasonDuplicateVMUUID, false
	}

	seen[uuid] = struct{}{}
	return "", true
}

// RunAzureMigrateValidation validates every row, splitting them into the rows
// Azure Migrate would accept and an aggregate describing the rejects.
func RunAzureMigrateValidation(rows [][]string, vmUUIDIdx, osConfigIdx int) ([][]string, AzureValidationResult) {
	result := AzureValidationResult{}
	seen := make(map[string]struct{}, len(rows))
	valid := make([][]string, 0, len(rows))

	for _, row := range rows {
		result.TotalVMsProcessed++
		reason, ok := ValidateAzureMigrateRow(row, vmUUIDIdx, osConfigIdx, seen, len(valid))
		if ok {
			valid = append(valid, row)
			continue
		}

		result.FailedRows = append(result.FailedRows, AzureFailedRow{Row: row, Reason: reason})
		switch reason {
		case ReasonMissingVMUUID:
			result.MissingVMUUIDCount++
		case ReasonMissingOSConfiguration:
			result.MissingOSConfigurationCount++
		case ReasonDuplicateVMUUID:
			result.DuplicateVMUUIDCount++
		case ReasonVMCountExceeded:
			result.VMCountLimitReached = true
		}
	}

	return valid, result
}
