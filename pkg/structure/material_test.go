package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leowmjw/go-epitaxy-timeline/pkg/growth"
	"github.com/leowmjw/go-epitaxy-timeline/pkg/timeline"
)

func TestStoichiometry(t *testing.T) {
	tests := []struct {
		name          string
		vIn, vAl, vGa float64
		vN            float64
		rate, xIn     float64
		yAl           float64
		metalRich     bool
	}{
		{name: "nitrogen rich", vIn: 2, vAl: 1, vGa: 0, vN: 5, rate: 3, xIn: 2.0 / 3, yAl: 1.0 / 3},
		{name: "metal rich clamps", vIn: 2, vAl: 1, vGa: 0, vN: 1, rate: 1, xIn: 0, yAl: 1, metalRich: true},
		{name: "equal fluxes are metal rich", vIn: 1, vAl: 1, vGa: 0, vN: 2, rate: 2, xIn: 0.5, yAl: 0.5, metalRich: true},
		{name: "gallium nitride", vGa: 1, vN: 4, rate: 1},
		{name: "no flux at all", metalRich: true},
		{name: "no group III flux", vN: 3, rate: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, xIn, yAl, metalRich := Stoichiometry(tt.vIn, tt.vAl, tt.vGa, tt.vN)
			assert.InDelta(t, tt.rate, rate, 1e-12)
			assert.InDelta(t, tt.xIn, xIn, 1e-12)
			assert.InDelta(t, tt.yAl, yAl, 1e-12)
			assert.Equal(t, tt.metalRich, metalRich)
			assert.LessOrEqual(t, xIn+yAl, 1.0)
		})
	}
}

func TestClampFractions(t *testing.T) {
	x, y := clampFractions(0.8, 0.7)
	assert.InDelta(t, 0.3, x, 1e-12)
	assert.Equal(t, 0.7, y)

	x, y = clampFractions(-0.2, 1.5)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 1.0, y)
}

func TestRun_MaterialAt(t *testing.T) {
	const from, to = 0, 10000
	sources := func(values map[Role]float64) map[Role]*growth.Channel {
		bound := make(map[Role]*growth.Channel, len(values))
		id := 1
		for _, role := range KnownRoles {
			v, ok := values[role]
			if !ok {
				continue
			}
			bound[role] = flux(id, string(role), flat(v, from, to)...)
			id++
		}
		return bound
	}

	tests := []struct {
		name      string
		values    map[Role]float64
		typ       MaterialType
		rate      float64
		xIn, yAl  float64
		metalRich bool
		undefined bool
		dopants   []Dopant
	}{
		{
			name:   "nitrogen rich nitride",
			values: map[Role]float64{Indium: 2, Aluminium: 1, Ammonia: 5},
			typ:    TypeInAlGaN, rate: 3, xIn: 2.0 / 3, yAl: 1.0 / 3,
		},
		{
			name:   "metal rich nitride",
			values: map[Role]float64{Indium: 2, Aluminium: 1, Ammonia: 1},
			typ:    TypeInAlGaN, rate: 1, xIn: 0, yAl: 1, metalRich: true,
		},
		{
			name:   "metal without nitrogen",
			values: map[Role]float64{Indium: 2, Aluminium: 1},
			typ:    TypeMetal, rate: 3,
		},
		{
			name:   "silicon nitride",
			values: map[Role]float64{Silicon: 0.5, NitrogenPlasma: 4},
			typ:    TypeSiN, undefined: true,
			dopants: []Dopant{{Species: SiliconDopant, Concentration: 0.5}},
		},
		{
			name:   "ammonia exposure",
			values: map[Role]float64{Ammonia: 5},
			typ:    TypeAmmonia, rate: 5,
		},
		{
			name:   "plasma exposure",
			values: map[Role]float64{NitrogenPlasma: 4},
			typ:    TypeNitrogenPlasma, rate: 4,
		},
		{
			name: "nothing open",
			typ:  TypeEmpty,
		},
		{
			name:   "doped gallium nitride",
			values: map[Role]float64{Gallium: 1, Ammonia: 5, Magnesium: 0.01, Silane: 0.02},
			typ:    TypeInAlGaN, rate: 1,
			dopants: []Dopant{
				{Species: SiliconDopant, Concentration: 0.02},
				{Species: MagnesiumDopant, Concentration: 0.01},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := newRun(t, sources(tt.values))
			m := run.MaterialAt(5000, 5000)

			assert.Equal(t, tt.typ, m.Type)
			assert.InDelta(t, tt.rate, m.GrowthRate, 1e-12)
			assert.InDelta(t, tt.xIn, m.XIn, 1e-12)
			assert.InDelta(t, tt.yAl, m.YAl, 1e-12)
			assert.Equal(t, tt.metalRich, m.MetalRich)
			assert.Equal(t, tt.undefined, m.GrowthRateUndefined)
			assert.Equal(t, tt.dopants, m.Dopants)
			assert.InDelta(t, 600, m.SubstrateTemperature, 1e-9)
			require.NotNil(t, m.HeaterPower)
			assert.Equal(t, 50.0, *m.HeaterPower)
			assert.Nil(t, m.HeaterTemperature)
		})
	}
}

func TestRun_MaterialAt_DesorptionWeight(t *testing.T) {
	gallium := func() *growth.Channel {
		return curveChannel(1, "Ga", growth.Effusion,
			growth.Coefficients{KFlow: 2, EFlow: 0, KDes: 1, EDes: 0},
			flat(900, 0, 10000)...)
	}

	t.Run("ammonia suppresses desorption", func(t *testing.T) {
		run := newRun(t, map[Role]*growth.Channel{
			Gallium:        gallium(),
			Ammonia:        flux(2, "NH3", flat(5, 0, 10000)...),
			NitrogenPlasma: flux(3, "N2", flat(3, 0, 10000)...),
		})
		m := run.MaterialAt(5000, 5000)
		assert.Equal(t, TypeInAlGaN, m.Type)
		assert.InDelta(t, 2, m.GrowthRate, 1e-12)
		assert.False(t, m.MetalRich)
	})

	t.Run("plasma keeps desorption", func(t *testing.T) {
		run := newRun(t, map[Role]*growth.Channel{
			Gallium:        gallium(),
			NitrogenPlasma: flux(3, "N2", flat(3, 0, 10000)...),
		})
		m := run.MaterialAt(5000, 5000)
		assert.InDelta(t, 1, m.GrowthRate, 1e-12)
	})
}

func TestRun_MaterialAt_PresenceAtReference(t *testing.T) {
	run := newRun(t, map[Role]*growth.Channel{
		Ammonia: flux(1, "NH3", flat(5, 0, 10000)...),
		Gallium: flux(2, "Ga", flat(1, 4000, 6000)...),
	})

	// gallium is absent at the reference so the regime is ammonia exposure
	m := run.MaterialAt(5000, 2000)
	assert.Equal(t, TypeAmmonia, m.Type)
	assert.Equal(t, int64(2000), m.Reference)

	// present at the reference but not at t: no gallium flux at t
	m = run.MaterialAt(8000, 5000)
	assert.Equal(t, TypeInAlGaN, m.Type)
	assert.Equal(t, 0.0, m.GrowthRate)
}

func TestRun_SubstrateTemperature(t *testing.T) {
	power := telemetry(heaterPowerID, "heater power",
		timeline.Sample{Timestamp: 0, Value: 50},
		timeline.Sample{Timestamp: 1000, Value: 50},
		timeline.Sample{Timestamp: 3000, Value: 70},
	)

	t.Run("fit over pyrometer nodes", func(t *testing.T) {
		pyro := telemetry(pyrometerID, "pyrometer",
			timeline.Sample{Timestamp: 0, Value: 600},
			timeline.Sample{Timestamp: 500, Value: 610},
			timeline.Sample{Timestamp: 1000, Value: 620},
			timeline.Sample{Timestamp: 2000, Value: 700},
			timeline.Sample{Timestamp: 3000, Value: 720},
		)
		run := newRun(t, map[Role]*growth.Channel{HeaterPower: power, Pyrometer: pyro})

		// constant power: mean of 600, 610, 620
		assert.InDelta(t, 610, run.SubstrateTemperature(500, 500), 1e-9)
		assert.InDelta(t, 610, run.SubstrateTemperature(900, 200), 1e-9)
		// ramp: least squares through (1000,620) (2000,700) (3000,720)
		assert.InDelta(t, 705, run.SubstrateTemperature(2500, 2000), 1e-9)
		assert.InDelta(t, 630, run.SubstrateTemperature(1000, 2000), 1e-9)
		// refs outside the heater span use the nearest pair
		assert.InDelta(t, 610, run.SubstrateTemperature(0, -500), 1e-9)
		assert.InDelta(t, 705, run.SubstrateTemperature(2500, 9000), 1e-9)
	})

	t.Run("window without pyrometer nodes", func(t *testing.T) {
		pyro := telemetry(pyrometerID, "pyrometer",
			timeline.Sample{Timestamp: -1000, Value: 500},
			timeline.Sample{Timestamp: 5000, Value: 1100},
		)
		run := newRun(t, map[Role]*growth.Channel{HeaterPower: power, Pyrometer: pyro})

		assert.InDelta(t, 650, run.SubstrateTemperature(500, 500), 1e-9)
		assert.InDelta(t, 850, run.SubstrateTemperature(2500, 2000), 1e-9)
	})

	t.Run("no pyrometer data", func(t *testing.T) {
		run := newRun(t, map[Role]*growth.Channel{HeaterPower: power, Pyrometer: telemetry(pyrometerID, "pyrometer")})
		assert.Equal(t, 0.0, run.SubstrateTemperature(500, 500))
	})
}

func TestMaterial_Formula(t *testing.T) {
	tests := []struct {
		material Material
		expected string
	}{
		{Material{Type: TypeInAlGaN, XIn: 0.2, YAl: 0.3}, "In0.2Al0.3Ga0.5N"},
		{Material{Type: TypeInAlGaN, XIn: 0, YAl: 1}, "AlN"},
		{Material{Type: TypeInAlGaN}, "GaN"},
		{Material{Type: TypeInAlGaN, XIn: 0.004, YAl: 0.25}, "Al0.25Ga0.75N"},
		{Material{Type: TypeInAlGaN, XIn: 0.17, YAl: 0.83}, "In0.17Al0.83N"},
		{Material{Type: TypeMetal}, "metal"},
		{Material{Type: TypeNitrogenPlasma}, "N-plasma"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.material.Formula())
		})
	}
}
