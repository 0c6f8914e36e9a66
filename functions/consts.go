package functions

const (
	// Tolerance is the default numerical tolerance. Surrogates with no
	// curvature of their own report sqrt(Tolerance) as their Lipschitz
	// bound so that step-size rules stay finite.
	Tolerance = 5e-8

	// FloatEpsilon is the double precision machine epsilon.
	FloatEpsilon = 2.220446049250313e-16
)
