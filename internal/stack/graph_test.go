package stack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func specWithDeps(deps map[string]map[string]DependsCondition) *Spec {
	spec := &Spec{Name: "test", Services: map[string]ServiceSpec{}}
	for name, dependsOn := range deps {
		spec.Services[name] = ServiceSpec{Name: name, Image: "img:latest", DependsOn: dependsOn}
	}
	return spec
}

func TestStartupOrder(t *testing.T) {
	r := require.New(t)

	t.Run("must order dependencies before dependants", func(t *testing.T) {
		spec := specWithDeps(map[string]map[string]DependsCondition{
			"database": nil,
			"backend":  {"database": ConditionServiceHealthy},
			"frontend": {"backend": ConditionServiceStarted},
		})

		order, err := spec.StartupOrder()
		r.NoError(err)
		r.Equal([]string{"database", "backend", "frontend"}, order)
	})

	t.Run("must break ties lexically", func(t *testing.T) {
		spec := specWithDeps(map[string]map[string]DependsCondition{
			"zulu":     nil,
			"alpha":    nil,
			"mid":      {"zulu": ConditionServiceStarted, "alpha": ConditionServiceStarted},
			"consumer": {"mid": ConditionServiceStarted},
		})

		order, err := spec.StartupOrder()
		r.NoError(err)
		r.Equal([]string{"alpha", "zulu", "mid", "consumer"}, order)
	})

	t.Run("must report cycles with their members", func(t *testing.T) {
		spec := specWithDeps(map[string]map[string]DependsCondition{
			"a": {"b": ConditionServiceStarted},
			"b": {"c": ConditionServiceStarted},
			"c": {"a": ConditionServiceStarted},
			"d": nil,
		})

		_, err := spec.StartupOrder()
		r.Error(err)
		r.Contains(err.Error(), "dependency cycle")
		r.Contains(err.Error(), "a, b, c")
	})

	t.Run("must fail on undeclared dependency", func(t *testing.T) {
		spec := specWithDeps(map[string]map[string]DependsCondition{
			"backend": {"database": ConditionServiceHealthy},
		})

		_, err := spec.StartupOrder()
		r.Error(err)
		r.Contains(err.Error(), "undeclared service 'database'")
	})
}

func TestShutdownOrder(t *testing.T) {
	r := require.New(t)

	spec := specWithDeps(map[string]map[string]DependsCondition{
		"database": nil,
		"backend":  {"database": ConditionServiceHealthy},
		"frontend": {"backend": ConditionServiceStarted},
	})

	order, err := spec.ShutdownOrder()
	r.NoError(err)
	r.Equal([]string{"frontend", "backend", "database"}, order)
}
