package model

import "strings"

// Role is the combat role a party slot requires.
type Role string

const (
	RoleTank   Role = "Tank"
	RoleHealer Role = "Healer"
	RoleDPS    Role = "DPS"
)

// Roles lists every role in roster display order.
var Roles = []Role{RoleTank, RoleHealer, RoleDPS}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleTank, RoleHealer, RoleDPS:
		return true
	}
	return false
}

// Job is a playable combat job (class). Every job belongs to exactly one role.
type Job string

const (
	// Tanks
	JobPaladin    Job = "PLD"
	JobWarrior    Job = "WAR"
	JobDarkKnight Job = "DRK"
	JobGunbreaker Job = "GNB"

	// Healers
	JobWhiteMage   Job = "WHM"
	JobScholar     Job = "SCH"
	JobAstrologian Job = "AST"
	JobSage        Job = "SGE"

	// Melee
	JobMonk    Job = "MNK"
	JobDragoon Job = "DRG"
	JobNinja   Job = "NIN"
	JobSamurai Job = "SAM"
	JobReaper  Job = "RPR"
	JobViper   Job = "VPR"

	// Physical ranged
	JobBard      Job = "BRD"
	JobMachinist Job = "MCH"
	JobDancer    Job = "DNC"

	// Casters
	JobBlackMage   Job = "BLM"
	JobSummoner    Job = "SMN"
	JobRedMage     Job = "RDM"
	JobPictomancer Job = "PCT"
)

var jobRoles = map[Job]Role{
	JobPaladin:     RoleTank,
	JobWarrior:     RoleTank,
	JobDarkKnight:  RoleTank,
	JobGunbreaker:  RoleTank,
	JobWhiteMage:   RoleHealer,
	JobScholar:     RoleHealer,
	JobAstrologian: RoleHealer,
	JobSage:        RoleHealer,
	JobMonk:        RoleDPS,
	JobDragoon:     RoleDPS,
	JobNinja:       RoleDPS,
	JobSamurai:     RoleDPS,
	JobReaper:      RoleDPS,
	JobViper:       RoleDPS,
	JobBard:        RoleDPS,
	JobMachinist:   RoleDPS,
	JobDancer:      RoleDPS,
	JobBlackMage:   RoleDPS,
	JobSummoner:    RoleDPS,
	JobRedMage:     RoleDPS,
	JobPictomancer: RoleDPS,
}

// ParseJob normalizes a job abbreviation. The second return is false for unknown jobs.
func ParseJob(s string) (Job, bool) {
	j := Job(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := jobRoles[j]
	return j, ok
}

// Role returns the role the job fills, or "" for unknown jobs
func (j Job) Role() Role {
	return jobRoles[j]
}

// IsValid reports whether j is a known job
func (j Job) IsValid() bool {
	_, ok := jobRoles[j]
	return ok
}
