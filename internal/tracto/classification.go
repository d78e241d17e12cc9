package tracto

// ConnectionClass is the scoring class assigned to one streamline. Every
// streamline of a submission receives exactly one class.
type ConnectionClass uint8

const (
	// ClassUnassigned is the zero value before the pipeline has run; it
	// never survives a completed scoring run.
	ClassUnassigned ConnectionClass = iota
	// ClassValid marks a streamline matched to a reference bundle.
	ClassValid
	// ClassInvalid marks a streamline grouped into an invalid bundle.
	ClassInvalid
	// ClassNone marks a streamline rejected as no-connection.
	ClassNone
)

func (c ConnectionClass) String() string {
	switch c {
	case ClassValid:
		return "VC"
	case ClassInvalid:
		return "IC"
	case ClassNone:
		return "NC"
	default:
		return "unassigned"
	}
}

// NCReason explains why a streamline was rejected as no-connection.
type NCReason uint8

const (
	// NCNone is the zero value for streamlines that are not NC.
	NCNone NCReason = iota
	// NCTooShort rejects streamlines under the length threshold.
	NCTooShort
	// NCNoEndpointROI rejects streamlines with an endpoint outside every ROI.
	NCNoEndpointROI
	// NCSingleton rejects sole members of an ROI-pair group.
	NCSingleton
)

func (r NCReason) String() string {
	switch r {
	case NCTooShort:
		return "too_short"
	case NCNoEndpointROI:
		return "no_endpoint_roi"
	case NCSingleton:
		return "singleton"
	default:
		return "none"
	}
}

// Classification is the tagged per-streamline scoring outcome. Exactly one
// of the payload fields is meaningful, selected by Class: Bundle for VC,
// Pair for IC, Reason for NC. Modelling the partition this way makes
// "exactly one of {VC, IC, NC}" structural; the orchestrator still runs the
// count cross-check on top.
type Classification struct {
	Class ConnectionClass

	// Bundle is the reference-bundle index for ClassValid.
	Bundle int

	// Pair is the endpoint ROI pair for ClassInvalid.
	Pair ROIPair

	// Reason is the rejection reason for ClassNone.
	Reason NCReason
}

// CountClasses tallies a classification slice into (VC, IC, NC, unassigned).
func CountClasses(classes []Classification) (vc, ic, nc, unassigned int) {
	for _, c := range classes {
		switch c.Class {
		case ClassValid:
			vc++
		case ClassInvalid:
			ic++
		case ClassNone:
			nc++
		default:
			unassigned++
		}
	}
	return
}
