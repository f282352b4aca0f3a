package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MaxIDLength          = 64
	MaxTitleLength       = 200
	MaxDescriptionLength = 4000
	MaxLinks             = 200
	MaxTags              = 16
	MaxReferences        = 100

	// idPattern covers the identifier style used across TARA entities,
	// e.g. "THR_001", "AT-42", "ds.brake.loss".
	idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

func init() {
	validate = validator.New()
}

// PotentialRequest carries the five attack-potential components of a leaf
// node or a manual scenario tuple.
type PotentialRequest struct {
	Time      int `json:"time" validate:"gte=0"`
	Expertise int `json:"expertise" validate:"gte=0"`
	Knowledge int `json:"knowledge" validate:"gte=0"`
	Access    int `json:"access" validate:"gte=0"`
	Equipment int `json:"equipment" validate:"gte=0"`
}

// ProjectRequest represents a request to create or rename a project.
type ProjectRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=4000"`
}

// AssetRequest represents a request to create or update an asset.
type AssetRequest struct {
	ID          string `json:"id" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=4000"`
}

// DamageScenarioRequest represents a request to create or update a damage scenario.
type DamageScenarioRequest struct {
	ID       string `json:"id" validate:"required,max=64"`
	Title    string `json:"title" validate:"required,max=200"`
	Category string `json:"category" validate:"omitempty,oneof=safety financial operational privacy"`
	Severity string `json:"severity" validate:"omitempty,oneof=none minor moderate major severe"`
}

// ThreatRequest represents a request to create or update a threat.
type ThreatRequest struct {
	ID                  string   `json:"id" validate:"required,max=64"`
	AssetID             string   `json:"asset_id" validate:"omitempty,max=64"`
	Title               string   `json:"title" validate:"required,max=200"`
	Description         string   `json:"description" validate:"omitempty,max=4000"`
	DamageScenarioIDs   []string `json:"damage_scenario_ids" validate:"omitempty,max=100,dive,required,max=64"`
	InitialFeasibility  string   `json:"initial_feasibility" validate:"omitempty,oneof=very_low low medium high"`
	ResidualFeasibility string   `json:"residual_feasibility" validate:"omitempty,oneof=very_low low medium high"`
}

// ScenarioRequest represents a request to create or update a threat scenario.
type ScenarioRequest struct {
	ID                string            `json:"id" validate:"required,max=64"`
	ThreatID          string            `json:"threat_id" validate:"omitempty,max=64"`
	Title             string            `json:"title" validate:"required,max=200"`
	Description       string            `json:"description" validate:"omitempty,max=4000"`
	DamageScenarioIDs []string          `json:"damage_scenario_ids" validate:"omitempty,max=100,dive,required,max=64"`
	Potential         *PotentialRequest `json:"potential" validate:"omitempty"`
}

// NodeRequest represents a request to create or update an attack-tree node.
type NodeRequest struct {
	ID             string            `json:"id" validate:"required,max=64"`
	Title          string            `json:"title" validate:"omitempty,max=200"`
	Description    string            `json:"description" validate:"omitempty,max=4000"`
	Gate           string            `json:"gate" validate:"omitempty,oneof=AND OR"`
	Links          []string          `json:"links" validate:"omitempty,max=200,dive,required,max=64"`
	Potential      *PotentialRequest `json:"potential" validate:"omitempty"`
	Configurations []string          `json:"configurations" validate:"omitempty,max=100,dive,required,max=64"`
	Tags           []string          `json:"tags" validate:"omitempty,max=16,dive,required,max=50"`
}

// ConfigurationRequest represents a request to create or update a TOE configuration.
type ConfigurationRequest struct {
	ID          string `json:"id" validate:"required,max=64"`
	Description string `json:"description" validate:"omitempty,max=4000"`
	Active      bool   `json:"active"`
}

// ControlRequest represents a request to create or update a security control.
type ControlRequest struct {
	ID          string   `json:"id" validate:"required,max=64"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"omitempty,max=4000"`
	ScenarioIDs []string `json:"scenario_ids" validate:"omitempty,max=100,dive,required,max=64"`
}

// GoalRequest represents a request to create or update a security goal.
type GoalRequest struct {
	ID          string   `json:"id" validate:"required,max=64"`
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"omitempty,max=4000"`
	ScenarioIDs []string `json:"scenario_ids" validate:"omitempty,max=100,dive,required,max=64"`
}

// ValidateID validates a single entity identifier.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("id '%s' exceeds maximum length of %d characters", id, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("id '%s' contains invalid characters (must start alphanumeric, then alphanumeric, underscore, dot or dash)", id)
	}
	return nil
}

func validateIDList(field string, ids []string) error {
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	return nil
}

// ValidateProjectRequest validates a project creation/update request.
func ValidateProjectRequest(req *ProjectRequest) error {
	if req == nil {
		return errors.New("project request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.ID != "" {
		return ValidateID(req.ID)
	}
	return nil
}

// ValidateAssetRequest validates an asset creation/update request.
func ValidateAssetRequest(req *AssetRequest) error {
	if req == nil {
		return errors.New("asset request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return ValidateID(req.ID)
}

// ValidateDamageScenarioRequest validates a damage-scenario creation/update request.
func ValidateDamageScenarioRequest(req *DamageScenarioRequest) error {
	if req == nil {
		return errors.New("damage scenario request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return ValidateID(req.ID)
}

// ValidateThreatRequest validates a threat creation/update request.
func ValidateThreatRequest(req *ThreatRequest) error {
	if req == nil {
		return errors.New("threat request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateID(req.ID); err != nil {
		return err
	}
	return validateIDList("DamageScenarioIDs", req.DamageScenarioIDs)
}

// ValidateScenarioRequest validates a threat-scenario creation/update request.
func ValidateScenarioRequest(req *ScenarioRequest) error {
	if req == nil {
		return errors.New("threat scenario request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateID(req.ID); err != nil {
		return err
	}
	return validateIDList("DamageScenarioIDs", req.DamageScenarioIDs)
}

// ValidateNodeRequest validates an attack-tree node creation/update
// request, including the leaf-or-internal shape rule: a node may carry a
// potential tuple or a gate, never both.
func ValidateNodeRequest(req *NodeRequest) error {
	if req == nil {
		return errors.New("node request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateID(req.ID); err != nil {
		return err
	}
	if req.Potential != nil && req.Gate != "" {
		return errors.New("Gate: a node cannot carry both a potential tuple and a gate")
	}
	if req.Gate == "" && len(req.Links) > 0 && req.Potential != nil {
		return errors.New("Links: a leaf node cannot have child links")
	}
	if err := validateIDList("Links", req.Links); err != nil {
		return err
	}
	return validateIDList("Configurations", req.Configurations)
}

// ValidateConfigurationRequest validates a TOE-configuration creation/update request.
func ValidateConfigurationRequest(req *ConfigurationRequest) error {
	if req == nil {
		return errors.New("configuration request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return ValidateID(req.ID)
}

// ValidateControlRequest validates a security-control creation/update request.
func ValidateControlRequest(req *ControlRequest) error {
	if req == nil {
		return errors.New("control request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateID(req.ID); err != nil {
		return err
	}
	return validateIDList("ScenarioIDs", req.ScenarioIDs)
}

// ValidateGoalRequest validates a security-goal creation/update request.
func ValidateGoalRequest(req *GoalRequest) error {
	if req == nil {
		return errors.New("goal request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateID(req.ID); err != nil {
		return err
	}
	return validateIDList("ScenarioIDs", req.ScenarioIDs)
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", field, param)
		case "dive":
			// For array elements
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
