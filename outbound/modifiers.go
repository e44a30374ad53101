package outbound

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/biter777/countries"
	"github.com/tidwall/gjson"
	"github.com/ttacon/libphonenumber"
)

// gjson modifiers available in attribute mapping paths, e.g.
// "traits_phone|@phone:61" or "address_country|@countryName".
func init() {

	gjson.AddModifier("phone", func(json, arg string) string {
		number := strings.Trim(gjson.Parse(json).String(), `"`)
		if number == "" {
			return ""
		}
		countryCode, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Sprintf(`"%s"`, number)
		}
		num, err := libphonenumber.Parse(number, libphonenumber.GetRegionCodeForCountryCode(countryCode))
		if err != nil {
			return fmt.Sprintf(`"%s"`, number)
		}
		return fmt.Sprintf(`"%s"`, libphonenumber.Format(num, libphonenumber.E164))
	})

	gjson.AddModifier("countryName", func(json, arg string) string {
		s := gjson.Parse(json).String()
		c := countries.ByName(s) // matches on Alpha-2 / Alpha-3 / Name
		if countries.Unknown == c {
			return ""
		}
		return fmt.Sprintf(`"%s"`, c.String())
	})

	gjson.AddModifier("contains", func(json, arg string) string {
		res := gjson.Parse(json)
		if res.IsArray() {
			for _, v := range res.Array() {
				if strings.Contains(v.String(), arg) {
					return "true"
				}
			}
			return "false"
		}
		return fmt.Sprintf("%t", strings.Contains(res.String(), arg))
	})

	gjson.AddModifier("now", func(json, arg string) string {
		return fmt.Sprintf(`"%s"`, time.Now().UTC().Format(time.RFC3339))
	})

}
