// Package profiles holds the static catalog of diagnosis archetypes
package profiles

import "github.com/car-advisor/advisor/pkg/types"

// Profile describes one archetype as presented to the user
type Profile struct {
	ID              types.ProfileID `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Recommendations []string        `json:"recommendations"`
}

var catalog = map[types.ProfileID]Profile{
	types.ProfileFamily: {
		ID:          types.ProfileFamily,
		Name:        "ファミリー重視タイプ",
		Description: "家族での利用を最優先に考える方です。安全性と実用性、そして経済性のバランスを重視します。",
		Recommendations: []string{
			"乗車定員が多く、荷物もたくさん積める車がおすすめ",
			"安全装備が充実したミニバンやSUVが最適",
			"燃費も考慮した経済的な選択を重視",
		},
	},
	types.ProfileCommuter: {
		ID:          types.ProfileCommuter,
		Name:        "通勤・実用重視タイプ",
		Description: "毎日の通勤や日常使いでの経済性を最重視する方です。燃費と維持費の安さを重要視します。",
		Recommendations: []string{
			"燃費の良いハイブリッド車やコンパクトカーがおすすめ",
			"維持費が安い軽自動車も選択肢として有力",
			"駐車のしやすさも重要なポイント",
		},
	},
	types.ProfileLuxury: {
		ID:          types.ProfileLuxury,
		Name:        "高級・品質重視タイプ",
		Description: "品質の高さとブランド価値を重視する方です。デザインと快適性にこだわりがあります。",
		Recommendations: []string{
			"プレミアムブランドのセダンやSUVがおすすめ",
			"上質な内装と先進的な装備を重視",
			"所有する喜びを感じられる車選び",
		},
	},
	types.ProfileEco: {
		ID:          types.ProfileEco,
		Name:        "エコ・環境重視タイプ",
		Description: "環境への配慮を最優先に考える方です。燃費性能と環境負荷の少なさを重要視します。",
		Recommendations: []string{
			"ハイブリッド車や電気自動車がおすすめ",
			"CO2排出量の少ない車種を選択",
			"将来性を考えた環境に優しい車選び",
		},
	},
	types.ProfileBalance: {
		ID:          types.ProfileBalance,
		Name:        "バランス重視タイプ",
		Description: "すべての要素をバランス良く考慮する方です。極端に偏らない安定した選択を好みます。",
		Recommendations: []string{
			"価格・燃費・安全性がバランス良く揃った車がおすすめ",
			"主要メーカーの人気車種が安心",
			"長く愛用できる定番モデルを選択",
		},
	},
}

// Get returns the catalog entry for id
func Get(id types.ProfileID) (Profile, bool) {
	p, ok := catalog[id]
	if !ok {
		return Profile{}, false
	}
	return clone(p), true
}

// All returns every profile in enumeration order
func All() []Profile {
	out := make([]Profile, 0, len(types.ProfileOrder))
	for _, id := range types.ProfileOrder {
		out = append(out, clone(catalog[id]))
	}
	return out
}

// IDs returns the profile ids in enumeration order
func IDs() []types.ProfileID {
	return append([]types.ProfileID(nil), types.ProfileOrder...)
}

// DisplayName returns the profile name, or the raw id for unknown profiles
func DisplayName(id types.ProfileID) string {
	if p, ok := catalog[id]; ok {
		return p.Name
	}
	return string(id)
}

func clone(p Profile) Profile {
	p.Recommendations = append([]string(nil), p.Recommendations...)
	return p
}
